// Package redis implements the EventSource port on a Redis Stream with a
// consumer group. It serves deployments where storage change events are
// published to Redis instead of a cloud queue.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

const (
	eventStream    = "harbor:events"
	eventGroup     = "harbor:ingesters"
	consumerPrefix = "ingester-"

	// Claim timeout - how long before an event is considered abandoned
	claimTimeout = 5 * time.Minute
)

// Verify interface compliance
var _ driven.EventSource = (*EventSource)(nil)

// Config holds stream consumer settings
type Config struct {
	// ConsumerName should be unique per instance (e.g., hostname + PID)
	ConsumerName string

	// BatchSize is the maximum events returned per Pull
	BatchSize int64

	// Block is how long Pull waits for new entries
	Block time.Duration

	Logger *slog.Logger
}

// EventSource consumes change events from a Redis Stream.
// Consumer groups give at-least-once delivery: entries stay pending until
// acknowledged, and entries abandoned by dead consumers are reclaimed.
type EventSource struct {
	client       *redis.Client
	consumerName string
	batchSize    int64
	block        time.Duration
	logger       *slog.Logger
}

// NewEventSource creates a stream-backed EventSource and ensures the
// consumer group exists.
func NewEventSource(client *redis.Client, cfg Config) (*EventSource, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}

	consumerName := cfg.ConsumerName
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	block := cfg.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	err := client.XGroupCreateMkStream(context.Background(), eventStream, eventGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &EventSource{
		client:       client,
		consumerName: consumerName,
		batchSize:    batchSize,
		block:        block,
		logger:       logger,
	}, nil
}

// Publish appends a change event to the stream. Producers such as bucket
// webhooks use this to feed the queue.
func (e *EventSource) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	err := e.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		Values: map[string]interface{}{
			"key":  ev.Key,
			"type": string(ev.Type),
			"size": ev.Size,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Pull reads the next batch of events, claiming abandoned entries first
func (e *EventSource) Pull(ctx context.Context) ([]domain.ChangeEvent, error) {
	if events, err := e.claimAbandoned(ctx); err == nil && len(events) > 0 {
		return events, nil
	}

	streams, err := e.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    eventGroup,
		Consumer: e.consumerName,
		Streams:  []string{eventStream, ">"},
		Count:    e.batchSize,
		Block:    e.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var events []domain.ChangeEvent
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			ev, ok := e.parseMessage(msg)
			if !ok {
				// Malformed entry, drop it from the stream
				e.client.XAck(ctx, eventStream, eventGroup, msg.ID)
				e.client.XDel(ctx, eventStream, msg.ID)
				continue
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

// Ack acknowledges and removes the stream entry behind the event
func (e *EventSource) Ack(ctx context.Context, ev domain.ChangeEvent) error {
	if ev.ReceiptHandle == "" {
		return nil
	}
	pipe := e.client.Pipeline()
	pipe.XAck(ctx, eventStream, eventGroup, ev.ReceiptHandle)
	pipe.XDel(ctx, eventStream, ev.ReceiptHandle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack event: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (e *EventSource) Ping(ctx context.Context) error {
	return e.client.Ping(ctx).Err()
}

func (e *EventSource) parseMessage(msg redis.XMessage) (domain.ChangeEvent, bool) {
	key, ok := msg.Values["key"].(string)
	if !ok || key == "" {
		e.logger.Warn("dropping stream entry without key", "id", msg.ID)
		return domain.ChangeEvent{}, false
	}

	typeStr, _ := msg.Values["type"].(string)
	evType := domain.EventType(typeStr)
	if evType != domain.EventCreate && evType != domain.EventDelete {
		e.logger.Warn("dropping stream entry with unknown type", "id", msg.ID, "type", typeStr)
		return domain.ChangeEvent{}, false
	}

	var size int64
	if sizeStr, ok := msg.Values["size"].(string); ok {
		size, _ = strconv.ParseInt(sizeStr, 10, 64)
	}

	return domain.ChangeEvent{
		Key:           key,
		Type:          evType,
		Size:          size,
		ReceiptHandle: msg.ID,
	}, true
}

// claimAbandoned takes over entries another consumer left pending too long
func (e *EventSource) claimAbandoned(ctx context.Context) ([]domain.ChangeEvent, error) {
	pending, err := e.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: eventStream,
		Group:  eventGroup,
		Start:  "-",
		End:    "+",
		Count:  e.batchSize,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}

	claimed, err := e.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   eventStream,
		Group:    eventGroup,
		Consumer: e.consumerName,
		MinIdle:  claimTimeout,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, err
	}

	var events []domain.ChangeEvent
	for _, msg := range claimed {
		ev, ok := e.parseMessage(msg)
		if !ok {
			e.client.XAck(ctx, eventStream, eventGroup, msg.ID)
			e.client.XDel(ctx, eventStream, msg.ID)
			continue
		}
		events = append(events, ev)
	}
	if len(events) > 0 {
		e.logger.Info("claimed abandoned events", "count", len(events))
	}
	return events, nil
}

func isGroupExistsError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}
