package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tripstock/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher emits inventory events. Publishing is best effort: the database
// is the source of truth and a failed publish never rolls back a seat change.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KafkaConfig contains configuration for the Kafka inventory producer
type KafkaConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	Compression      sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaConfig returns a default producer configuration
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "inventory-events",
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		Compression:      sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000,
	}
}

// SaramaConfig translates the config into a sarama producer config
func (c *KafkaConfig) SaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = c.RequiredAcks
	cfg.Producer.Compression = c.Compression
	cfg.Producer.Retry.Max = c.RetryMax
	cfg.Producer.Timeout = c.Timeout
	cfg.Producer.Idempotent = c.IdempotentWrites
	cfg.Producer.MaxMessageBytes = c.MaxMessageBytes
	if c.IdempotentWrites {
		cfg.Net.MaxOpenRequests = 1
	}
	// same key, same partition: per-capacity ordering
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

// KafkaPublisher writes events to Kafka with a sync producer
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaPublisher dials the brokers and returns a publisher
func NewKafkaPublisher(cfg *KafkaConfig) (*KafkaPublisher, error) {
	if cfg == nil {
		cfg = DefaultKafkaConfig()
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      logger.GetDefault(),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal inventory event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(payload),
		Headers:   headers(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send inventory event: %w", err)
	}

	p.log.DebugContext(ctx, "inventory event published",
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"type", string(event.Type),
		"capacity_id", event.CapacityID.String(),
	)
	return nil
}

func headers(event Event) []sarama.RecordHeader {
	h := []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("tenant_id"), Value: []byte(event.TenantID.String())},
		{Key: []byte("producer"), Value: []byte("tripstock-inventory")},
	}
	if event.HoldID != nil {
		h = append(h, sarama.RecordHeader{Key: []byte("hold_id"), Value: []byte(event.HoldID.String())})
	}
	return h
}

func (p *KafkaPublisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// Noop drops every event. Used when Kafka is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filters recorded events by type
func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
