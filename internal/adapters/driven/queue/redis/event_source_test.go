package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func newTestSource(t *testing.T, client *redis.Client) *EventSource {
	src, err := NewEventSource(client, Config{
		ConsumerName: "test-consumer",
		Block:        10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewEventSource failed: %v", err)
	}
	return src
}

func TestPublishAndPull(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	src := newTestSource(t, client)
	ctx := context.Background()

	err := src.Publish(ctx, domain.ChangeEvent{Key: "docs/a.pdf", Type: domain.EventCreate, Size: 42})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	events, err := src.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Key != "docs/a.pdf" {
		t.Errorf("unexpected key %q", ev.Key)
	}
	if ev.Type != domain.EventCreate {
		t.Errorf("unexpected type %v", ev.Type)
	}
	if ev.Size != 42 {
		t.Errorf("unexpected size %d", ev.Size)
	}
	if ev.ReceiptHandle == "" {
		t.Error("expected stream entry ID as receipt handle")
	}
}

func TestPullEmptyStream(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	src := newTestSource(t, client)

	events, err := src.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestAckRemovesEntry(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	src := newTestSource(t, client)
	ctx := context.Background()

	if err := src.Publish(ctx, domain.ChangeEvent{Key: "docs/a.pdf", Type: domain.EventDelete}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	events, err := src.Pull(ctx)
	if err != nil || len(events) != 1 {
		t.Fatalf("Pull failed: %v, events %d", err, len(events))
	}

	if err := src.Ack(ctx, events[0]); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	// Stream entry should be gone
	length, err := client.XLen(ctx, eventStream).Result()
	if err != nil {
		t.Fatalf("XLen failed: %v", err)
	}
	if length != 0 {
		t.Errorf("expected empty stream after ack, got %d entries", length)
	}
}

func TestPullDropsMalformedEntries(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	src := newTestSource(t, client)
	ctx := context.Background()

	// Entry with no key field
	err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		Values: map[string]interface{}{"type": "create"},
	}).Err()
	if err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}
	// Entry with unknown type
	err = client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		Values: map[string]interface{}{"key": "docs/a.pdf", "type": "rename"},
	}).Err()
	if err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}

	events, err := src.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected malformed entries dropped, got %d events", len(events))
	}
}

func TestUnackedEventRedelivery(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	src := newTestSource(t, client)
	ctx := context.Background()

	if err := src.Publish(ctx, domain.ChangeEvent{Key: "docs/a.pdf", Type: domain.EventCreate}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	events, err := src.Pull(ctx)
	if err != nil || len(events) != 1 {
		t.Fatalf("Pull failed: %v, events %d", err, len(events))
	}

	// Without an ack the entry stays pending for the group
	pending, err := client.XPending(ctx, eventStream, eventGroup).Result()
	if err != nil {
		t.Fatalf("XPending failed: %v", err)
	}
	if pending.Count != 1 {
		t.Errorf("expected 1 pending entry, got %d", pending.Count)
	}
}
