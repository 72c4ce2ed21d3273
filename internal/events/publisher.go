package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lfarias/zoomrank/internal/storage"
)

// EventTypeRunCompleted is published after a successful scrape-rank cycle so
// downstream consumers (alerting, price history) can react.
const EventTypeRunCompleted = "RUN_COMPLETED"

// RunCompletedPayload is the stream message body.
type RunCompletedPayload struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	RunID        string    `json:"run_id"`
	Query        string    `json:"query"`
	Filters      []string  `json:"filters"`
	ProductCount int       `json:"product_count"`
	TopProduct   string    `json:"top_product,omitempty"`
	TopScore     float64   `json:"top_score,omitempty"`
}

// RedisClient is the slice of the Redis API the publisher needs; a mock
// stands in during tests.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher pushes run-completed events onto a Redis stream.
type Publisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// NewRedisClient builds a plain go-redis client for the publisher.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// PublishRunCompleted fills in event metadata and appends the payload to the
// stream.
func (p *Publisher) PublishRunCompleted(ctx context.Context, run *storage.Run, payload *RunCompletedPayload) error {
	if payload == nil {
		payload = &RunCompletedPayload{}
	}

	payload.EventID = uuid.New().String()
	payload.EventType = EventTypeRunCompleted
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}
	payload.RunID = run.ID.String()
	payload.Query = run.Query
	payload.Filters = run.Filters
	payload.ProductCount = run.ProductCount

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_type": payload.EventType,
			"payload":    string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.Info("event published",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"run_id", payload.RunID,
		"stream", p.stream,
	)

	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
