package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"tripstock/internal/capacity"
	"tripstock/internal/holds"
	"tripstock/internal/seatblocks"
	"tripstock/internal/shared/config"
	"tripstock/internal/shared/database"
	"tripstock/internal/shared/middleware"
	"tripstock/pkg/cache"
	"tripstock/pkg/clock"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Seeder struct {
	db         *database.DB
	capacities capacity.Service
	holds      holds.Service
	blocks     seatblocks.Service
	tenantID   uuid.UUID
}

func main() {
	fmt.Println("🌱 Starting Tripstock Database Seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := newSeeder(db)

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	if err := seeder.PrintTokens(cfg); err != nil {
		log.Fatalf("Failed to issue tokens: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

func newSeeder(db *database.DB) *Seeder {
	clk := clock.System()
	repo := capacity.NewRepository(db.PostgreSQL)
	capacities := capacity.NewService(db.PostgreSQL, repo, cache.NewMemoryService(time.Minute, time.Minute), nil, clk, nil)
	holdSvc := holds.NewService(db.PostgreSQL, holds.NewRepository(db.PostgreSQL), repo, capacities, nil, clk, nil)

	return &Seeder{
		db:         db,
		capacities: capacities,
		holds:      holdSvc,
		blocks:     seatblocks.NewService(holdSvc),
		tenantID:   uuid.New(),
	}
}

// CleanDatabase truncates the inventory tables, children first
func (s *Seeder) CleanDatabase() error {
	tables := []string{"waitlist_entries", "holds", "capacities"}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll schedules two weeks of departures for two tours and puts some
// load on them
func (s *Seeder) SeedAll(ctx context.Context) error {
	tours := []struct {
		name     string
		id       uuid.UUID
		seats    int
		blocked  int
		overbook int
		time     string
		waitlist bool
	}{
		{"Harbour cruise", uuid.New(), 40, 2, 2, "10:00", true},
		{"Glacier day trip", uuid.New(), 16, 0, 0, "07:30", false},
	}

	today := time.Now().UTC()
	for _, tour := range tours {
		fmt.Printf("  🚌 Seeding departures for %s (%s)\n", tour.name, tour.id)
		for day := 1; day <= 14; day++ {
			created, err := s.capacities.Create(ctx, capacity.CreateInput{
				TenantID:         s.tenantID,
				ResourceID:       tour.id,
				SaleDate:         today.AddDate(0, 0, day),
				TimeOfDay:        tour.time,
				TotalCapacity:    tour.seats,
				BlockedSeats:     tour.blocked,
				OverbookingLimit: tour.overbook,
				MinParticipants:  tour.seats / 4,
				WaitlistEnabled:  tour.waitlist,
			})
			if err != nil {
				return fmt.Errorf("failed to create departure: %w", err)
			}

			if err := s.seedLoad(ctx, created.Capacity, day); err != nil {
				return err
			}
		}
	}

	// Clear Redis cache to ensure fresh calendars
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}
	return nil
}

// seedLoad fills earlier departures harder than later ones
func (s *Seeder) seedLoad(ctx context.Context, c capacity.Capacity, day int) error {
	sellable := c.TotalCapacity - c.BlockedSeats
	target := sellable * (15 - day) / 14

	for held := 0; held+4 <= target; held += 4 {
		result, err := s.holds.AcquireHold(ctx, holds.AcquireInput{
			TenantID:   s.tenantID,
			CapacityID: c.ID,
			SeatCount:  4,
			HoldType:   holds.HoldTypePaymentPending,
			Source:     holds.SourceWebsite,
			Reference:  fmt.Sprintf("seed-%d-%d", day, held),
		})
		if err != nil {
			return fmt.Errorf("failed to hold seats: %w", err)
		}
		if _, err := s.holds.ConfirmHold(ctx, result.Hold.ID, uuid.New()); err != nil {
			return fmt.Errorf("failed to confirm hold: %w", err)
		}
	}

	if day%5 == 0 {
		_, err := s.blocks.Create(ctx, seatblocks.BlockInput{
			TenantID:   s.tenantID,
			CapacityID: c.ID,
			SeatCount:  1,
			BlockType:  holds.BlockTypeStaff,
			Reference:  "guide seat",
		})
		if err != nil {
			return fmt.Errorf("failed to block seats: %w", err)
		}
	}
	return nil
}

// PrintTokens issues day-long access tokens for the seeded tenant
func (s *Seeder) PrintTokens(cfg *config.Config) error {
	fmt.Printf("\n🏢 Tenant: %s\n", s.tenantID)
	for _, role := range []string{middleware.RoleAdmin, middleware.RoleUser} {
		token, err := middleware.IssueAccessToken(cfg.JWT.Secret, uuid.New(), role, s.tenantID, 24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("🔑 %s token:\n%s\n", role, token)
	}
	return nil
}
