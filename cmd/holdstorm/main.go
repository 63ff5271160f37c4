package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"
)

// StormResult is the outcome of one hold request
type StormResult struct {
	Status       int           `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

type StormSuite struct {
	BaseURL    string
	Token      string
	CapacityID string
	Seats      int
	client     *http.Client
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080/api/v1", "API base URL")
	token := flag.String("token", "", "access token (see cmd/seed output)")
	capacityID := flag.String("capacity", "", "capacity record to hammer")
	requests := flag.Int("n", 100, "concurrent hold requests")
	seats := flag.Int("seats", 2, "seats per hold")
	flag.Parse()

	if *token == "" || *capacityID == "" {
		log.Fatal("-token and -capacity are required")
	}

	suite := &StormSuite{
		BaseURL:    *baseURL,
		Token:      *token,
		CapacityID: *capacityID,
		Seats:      *seats,
		client:     &http.Client{Timeout: 30 * time.Second},
	}

	fmt.Println("🧪 Starting hold storm...")
	fmt.Println("=========================")

	before, err := suite.bookableSeats()
	if err != nil {
		log.Fatalf("❌ availability check failed: %v", err)
	}
	fmt.Printf("Bookable seats before: %d\n", before)

	results := suite.storm(*requests)
	granted := suite.report(results)

	after, err := suite.bookableSeats()
	if err != nil {
		log.Fatalf("❌ availability check failed: %v", err)
	}
	fmt.Printf("Bookable seats after: %d\n", after)

	if granted*suite.Seats > before {
		log.Fatalf("❌ OVERSOLD: granted %d seats with %d bookable", granted*suite.Seats, before)
	}
	fmt.Println("\n🎉 No oversell: every granted seat was bookable")
}

func (s *StormSuite) storm(n int) []StormResult {
	results := make([]StormResult, n)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = s.acquire(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return results
}

func (s *StormSuite) acquire(i int) StormResult {
	payload, _ := json.Marshal(map[string]interface{}{
		"capacity_id": s.CapacityID,
		"seat_count":  s.Seats,
		"hold_type":   "CART",
		"reference":   fmt.Sprintf("holdstorm-%d", i),
	})

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/holds", bytes.NewReader(payload))
	if err != nil {
		return StormResult{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Token)

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return StormResult{ResponseTime: time.Since(started), Error: err.Error()}
	}
	defer resp.Body.Close()
	return StormResult{Status: resp.StatusCode, ResponseTime: time.Since(started)}
}

func (s *StormSuite) bookableSeats() (int, error) {
	req, err := http.NewRequest(http.MethodGet, s.BaseURL+"/capacities/"+s.CapacityID+"/availability", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			BookableSeats int `json:"bookable_seats"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Data.BookableSeats, nil
}

// report prints the status breakdown and returns the number of granted holds
func (s *StormSuite) report(results []StormResult) int {
	fmt.Println("\n📊 HOLD STORM REPORT")
	fmt.Println("====================")

	byStatus := make(map[int]int)
	latencies := make([]time.Duration, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			continue
		}
		byStatus[r.Status]++
		latencies = append(latencies, r.ResponseTime)
	}

	fmt.Printf("Total Requests: %d\n", len(results))
	fmt.Printf("Granted (201): %d\n", byStatus[http.StatusCreated])
	fmt.Printf("Capacity exceeded (409): %d\n", byStatus[http.StatusConflict])
	fmt.Printf("Gave up on contention (503): %d\n", byStatus[http.StatusServiceUnavailable])
	fmt.Printf("Rate limited (429): %d\n", byStatus[http.StatusTooManyRequests])
	fmt.Printf("Transport errors: %d\n", failed)

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Printf("p50: %v  p99: %v\n", latencies[len(latencies)/2], latencies[len(latencies)*99/100])
	}
	return byStatus[http.StatusCreated]
}
