package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven/mocks"
)

type stubProcessor struct {
	mu      sync.Mutex
	keys    []string
	results map[string]*domain.IngestResult
}

func newStubProcessor() *stubProcessor {
	return &stubProcessor{results: make(map[string]*domain.IngestResult)}
}

func (s *stubProcessor) set(key string, result *domain.IngestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = result
}

func (s *stubProcessor) ProcessObject(ctx context.Context, key string) *domain.IngestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	if result, ok := s.results[key]; ok {
		return result
	}
	return &domain.IngestResult{FileName: key, Success: true}
}

func (s *stubProcessor) processed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

type dispatcherFixture struct {
	source    *mocks.MockEventSource
	processor *stubProcessor
	index     *mocks.MockSearchIndex
	d         *Dispatcher
}

func newDispatcherFixture() *dispatcherFixture {
	f := &dispatcherFixture{
		source:    mocks.NewMockEventSource(),
		processor: newStubProcessor(),
		index:     mocks.NewMockSearchIndex(),
	}
	f.d = NewDispatcher(DispatcherConfig{
		Source:       f.source,
		Processor:    f.processor,
		Index:        f.index,
		Bucket:       "docs",
		PollInterval: 10 * time.Millisecond,
	})
	return f
}

func TestHandleEventCreateAcksOnSuccess(t *testing.T) {
	f := newDispatcherFixture()

	ev := domain.ChangeEvent{Key: "reports/q1.pdf", Type: domain.EventCreate, ReceiptHandle: "rh-1"}
	f.d.handleEvent(context.Background(), ev)

	if got := f.processor.processed(); len(got) != 1 || got[0] != "reports/q1.pdf" {
		t.Fatalf("processed keys = %v, want [reports/q1.pdf]", got)
	}
	acked := f.source.Acked()
	if len(acked) != 1 || acked[0].ReceiptHandle != "rh-1" {
		t.Fatalf("acked = %v, want the processed event", acked)
	}
}

func TestHandleEventCreateDoesNotAckOnFailure(t *testing.T) {
	f := newDispatcherFixture()
	f.processor.set("broken.pdf", &domain.IngestResult{FileName: "broken.pdf", Success: false, Error: "extraction failed"})

	ev := domain.ChangeEvent{Key: "broken.pdf", Type: domain.EventCreate, ReceiptHandle: "rh-2"}
	f.d.handleEvent(context.Background(), ev)

	if acked := f.source.Acked(); len(acked) != 0 {
		t.Fatalf("acked = %v, want none for a failed event", acked)
	}
}

func TestHandleEventDuplicateIsAcked(t *testing.T) {
	f := newDispatcherFixture()
	f.processor.set("same.pdf", &domain.IngestResult{FileName: "same.pdf", Success: true, Duplicate: true})

	ev := domain.ChangeEvent{Key: "same.pdf", Type: domain.EventCreate, ReceiptHandle: "rh-3"}
	f.d.handleEvent(context.Background(), ev)

	if acked := f.source.Acked(); len(acked) != 1 {
		t.Fatalf("acked %d events, want 1", len(acked))
	}
}

func TestHandleEventDeleteRemovesIndexedDocuments(t *testing.T) {
	f := newDispatcherFixture()
	path := domain.StoragePath("docs", "old/report.pdf")
	if err := f.index.IndexDocument(context.Background(), &domain.Document{
		ID:       "doc-1",
		FilePath: path,
	}); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	ev := domain.ChangeEvent{Key: "old/report.pdf", Type: domain.EventDelete, ReceiptHandle: "rh-4"}
	f.d.handleEvent(context.Background(), ev)

	if f.index.Count() != 0 {
		t.Fatalf("index holds %d documents, want 0", f.index.Count())
	}
	if acked := f.source.Acked(); len(acked) != 1 {
		t.Fatalf("acked %d events, want 1", len(acked))
	}
	if got := f.processor.processed(); len(got) != 0 {
		t.Fatalf("delete event reached the processor: %v", got)
	}
}

func TestHandleEventDeleteReplayIsHarmless(t *testing.T) {
	f := newDispatcherFixture()
	path := domain.StoragePath("docs", "old/report.pdf")
	if err := f.index.IndexDocument(context.Background(), &domain.Document{
		ID:       "doc-1",
		FilePath: path,
	}); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	// Redelivery after the path is already gone must ack again, not error
	f.d.handleEvent(context.Background(), domain.ChangeEvent{Key: "old/report.pdf", Type: domain.EventDelete, ReceiptHandle: "rh-7"})
	f.d.handleEvent(context.Background(), domain.ChangeEvent{Key: "old/report.pdf", Type: domain.EventDelete, ReceiptHandle: "rh-8"})

	if f.index.Count() != 0 {
		t.Fatalf("index holds %d documents, want 0", f.index.Count())
	}
	acked := f.source.Acked()
	if len(acked) != 2 {
		t.Fatalf("acked %d events, want both deliveries", len(acked))
	}
	if acked[0].ReceiptHandle != "rh-7" || acked[1].ReceiptHandle != "rh-8" {
		t.Fatalf("acked = %v, want rh-7 then rh-8", acked)
	}
}

func TestHandleEventDeleteFailureIsNotAcked(t *testing.T) {
	f := newDispatcherFixture()
	f.index.DeleteErr = context.DeadlineExceeded

	ev := domain.ChangeEvent{Key: "gone.pdf", Type: domain.EventDelete, ReceiptHandle: "rh-5"}
	f.d.handleEvent(context.Background(), ev)

	if acked := f.source.Acked(); len(acked) != 0 {
		t.Fatalf("acked = %v, want none when the delete failed", acked)
	}
}

func TestHandleEventUnknownTypeIsDiscarded(t *testing.T) {
	f := newDispatcherFixture()

	ev := domain.ChangeEvent{Key: "weird.pdf", Type: domain.EventType("restore"), ReceiptHandle: "rh-6"}
	f.d.handleEvent(context.Background(), ev)

	if got := f.processor.processed(); len(got) != 0 {
		t.Fatalf("unknown event reached the processor: %v", got)
	}
	if acked := f.source.Acked(); len(acked) != 1 {
		t.Fatalf("acked %d events, want 1 (discard still acks)", len(acked))
	}
}

func TestDispatcherStartStop(t *testing.T) {
	f := newDispatcherFixture()
	f.source.Enqueue(
		domain.ChangeEvent{Key: "a.pdf", Type: domain.EventCreate, ReceiptHandle: "rh-a"},
		domain.ChangeEvent{Key: "b.csv", Type: domain.EventCreate, ReceiptHandle: "rh-b"},
	)

	if err := f.d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(f.source.Acked()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for events, acked %d", len(f.source.Acked()))
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.d.Stop()
	f.d.Stop()

	if got := f.processor.processed(); len(got) != 2 {
		t.Fatalf("processed %d objects, want 2", len(got))
	}
}

func TestDispatcherStartIsIdempotent(t *testing.T) {
	f := newDispatcherFixture()
	if err := f.d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.d.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	f.d.Stop()
}
