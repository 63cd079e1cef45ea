package driven

import (
	"context"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

// EventSource delivers object change events with at-least-once semantics.
// Events stay visible until acknowledged, so consumers must tolerate
// redelivery of work they already completed.
type EventSource interface {
	// Pull returns the next batch of change events. An empty slice with a
	// nil error means no events were available.
	Pull(ctx context.Context) ([]domain.ChangeEvent, error)

	// Ack marks an event as fully processed so it is not redelivered.
	Ack(ctx context.Context, ev domain.ChangeEvent) error
}
