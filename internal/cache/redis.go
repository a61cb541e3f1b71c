// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for client action records.
const DefaultQueueName = "uno_actions"

// ActionRecord is the queued form of an accepted client write, consumed by the historian.
type ActionRecord struct {
	RecordID      uuid.UUID              `json:"record_id"`
	SessionID     int64                  `json:"session_id"`
	Actor         string                 `json:"actor"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Connect dials Redis and pings it before returning the client.
func Connect(addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publisher pushes action records onto a Redis list.
type Publisher struct {
	rdb   redis.Cmdable
	queue string
}

func NewPublisher(rdb redis.Cmdable, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// Queue returns the list name records are pushed to.
func (p *Publisher) Queue() string { return p.queue }

// Record implements game.ActionRecorder.
func (p *Publisher) Record(ctx context.Context, a models.Action) error {
	return p.Publish(ctx, NewActionRecord(a))
}

// Publish serializes the record to JSON, then pushes it to the Redis queue.
func (p *Publisher) Publish(ctx context.Context, record ActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// NewActionRecord stamps a with a fresh record id.
func NewActionRecord(a models.Action) ActionRecord {
	payload := a.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return ActionRecord{
		RecordID:      uuid.New(),
		SessionID:     a.SessionID,
		Actor:         a.Actor,
		ActionType:    a.Type,
		ActionPayload: payload,
		Timestamp:     a.Timestamp,
	}
}

// DecodeActionRecord parses one queued payload.
func DecodeActionRecord(payload string) (ActionRecord, error) {
	var rec ActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return rec, fmt.Errorf("invalid action record: %w", err)
	}
	if rec.RecordID == uuid.Nil {
		return rec, fmt.Errorf("invalid action record: missing record_id")
	}
	return rec, nil
}
