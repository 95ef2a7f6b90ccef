package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/sheets/memory"
)

type fakeSource struct {
	mu      sync.Mutex
	entries map[int64]core.ExpenseEntry
	err     error
	lists   int
}

func newFakeSource(entries ...core.ExpenseEntry) *fakeSource {
	s := &fakeSource{entries: map[int64]core.ExpenseEntry{}}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s
}

func (s *fakeSource) Get(_ context.Context, id int64) (*core.ExpenseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *fakeSource) List(_ context.Context, _ string) ([]core.ExpenseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]core.ExpenseEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeSource) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func event(t amqp.EventType, id int64) *amqp.ExpenseEvent {
	return &amqp.ExpenseEvent{Type: t, ID: id, Timestamp: time.Now()}
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(core.ExpenseEntry{ID: 1, Date: "2024-03-05", Total: 100})
	mirror := memory.New()
	w := NewSyncWorker(source, mirror, 0)

	if err := w.HandleEvent(ctx, event(amqp.EventCreated, 1)); err != nil {
		t.Fatalf("created: %v", err)
	}
	if _, ok := mirror.Entry(1); !ok {
		t.Fatal("created entry not mirrored")
	}

	source.entries[1] = core.ExpenseEntry{ID: 1, Date: "2024-03-06", Total: 200}
	if err := w.HandleEvent(ctx, event(amqp.EventUpdated, 1)); err != nil {
		t.Fatalf("updated: %v", err)
	}
	if e, _ := mirror.Entry(1); e.Total != 200 {
		t.Fatalf("update not mirrored: %+v", e)
	}

	if err := w.HandleEvent(ctx, event(amqp.EventDeleted, 1)); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if mirror.Len() != 0 {
		t.Fatal("deleted entry still mirrored")
	}
}

func TestHandleEvent_EntryGoneBeforeSync(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	_ = mirror.UpsertEntry(ctx, core.ExpenseEntry{ID: 3})
	w := NewSyncWorker(newFakeSource(), mirror, 0)

	if err := w.HandleEvent(ctx, event(amqp.EventUpdated, 3)); err != nil {
		t.Fatalf("updated: %v", err)
	}
	if mirror.Len() != 0 {
		t.Fatal("entry deleted in the database should be removed from the mirror")
	}
}

func TestHandleEvent_SourceErrorIsReturned(t *testing.T) {
	source := newFakeSource()
	source.err = errors.New("database is locked")
	w := NewSyncWorker(source, memory.New(), 0)

	if err := w.HandleEvent(context.Background(), event(amqp.EventCreated, 1)); !errors.Is(err, source.err) {
		t.Fatalf("expected source error so the event is requeued, got %v", err)
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	_ = mirror.UpsertEntry(ctx, core.ExpenseEntry{ID: 99})
	w := NewSyncWorker(newFakeSource(core.ExpenseEntry{ID: 1}, core.ExpenseEntry{ID: 2}), mirror, 0)

	if err := w.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if mirror.Len() != 2 {
		t.Fatalf("expected 2 mirrored entries, got %d", mirror.Len())
	}
	if _, ok := mirror.Entry(99); ok {
		t.Fatal("stale entry survived reconcile")
	}
}

type fakeConsumer struct {
	events []*amqp.ExpenseEvent
	done   chan struct{}
}

func (c *fakeConsumer) ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error {
	for _, ev := range c.events {
		if err := handler(ctx, ev); err != nil {
			return err
		}
	}
	close(c.done)
	<-ctx.Done()
	return ctx.Err()
}

func TestRunConsumesAndReconciles(t *testing.T) {
	source := newFakeSource(core.ExpenseEntry{ID: 1}, core.ExpenseEntry{ID: 2})
	mirror := memory.New()
	w := NewSyncWorker(source, mirror, 10*time.Millisecond)
	consumer := &fakeConsumer{
		events: []*amqp.ExpenseEvent{event(amqp.EventDeleted, 2)},
		done:   make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx, consumer) }()

	select {
	case <-consumer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never ran")
	}

	deadline := time.Now().Add(2 * time.Second)
	for source.listCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if source.listCount() < 2 {
		t.Fatalf("expected startup and periodic reconciles, got %d", source.listCount())
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v after cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
