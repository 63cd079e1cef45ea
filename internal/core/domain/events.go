package domain

// EventType classifies a storage change notification.
type EventType string

const (
	EventCreate EventType = "create"
	EventDelete EventType = "delete"
)

// ChangeEvent is a single storage change pulled from an event source.
// Delivery is at least once; consumers must tolerate duplicates.
type ChangeEvent struct {
	Key  string
	Type EventType
	Size int64

	// ReceiptHandle is the opaque delivery handle used to acknowledge the
	// message the event came from. Empty for polling-based sources.
	ReceiptHandle string
}
