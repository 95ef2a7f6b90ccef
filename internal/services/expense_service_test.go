package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ledger/internal/amqp"
	"ledger/internal/core"
)

type fakeStore struct {
	entries   []core.ExpenseEntry
	total     int64
	entry     *core.ExpenseEntry
	nextID    int64
	matched   bool
	err       error
	lastMonth string
	lastDate  string
	lastItems []core.RawItem
	deleted   []int64
}

func (f *fakeStore) List(_ context.Context, month string) ([]core.ExpenseEntry, error) {
	f.lastMonth = month
	return f.entries, f.err
}

func (f *fakeStore) MonthTotal(context.Context, string) (int64, error) {
	return f.total, f.err
}

func (f *fakeStore) Get(context.Context, int64) (*core.ExpenseEntry, error) {
	return f.entry, f.err
}

func (f *fakeStore) Create(_ context.Context, date string, items []core.RawItem) (int64, error) {
	f.lastDate, f.lastItems = date, items
	return f.nextID, f.err
}

func (f *fakeStore) Update(_ context.Context, _ int64, date string, items []core.RawItem) (bool, error) {
	f.lastDate, f.lastItems = date, items
	return f.matched, f.err
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

type published struct {
	eventType amqp.EventType
	id        int64
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) PublishExpenseEvent(_ context.Context, eventType amqp.EventType, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{eventType, id})
	return p.err
}

func TestListCombinesEntriesAndTotal(t *testing.T) {
	store := &fakeStore{
		entries: []core.ExpenseEntry{{ID: 2, Date: "2024-03-05", Total: 100}, {ID: 1, Date: "2024-03-01", Total: 50}},
		total:   150,
	}
	svc := NewExpenseService(store, nil)

	list, err := svc.List(context.Background(), "2024-03")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.MonthTotal != 150 || len(list.Items) != 2 {
		t.Fatalf("unexpected list %+v", list)
	}
	if store.lastMonth != "2024-03" {
		t.Fatalf("month not forwarded: %q", store.lastMonth)
	}
}

func TestListEmptyIsNonNil(t *testing.T) {
	svc := NewExpenseService(&fakeStore{}, nil)
	list, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Items == nil {
		t.Fatal("expected empty, non-nil items")
	}
}

func TestListPropagatesStoreError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewExpenseService(&fakeStore{err: boom}, nil)
	if _, err := svc.List(context.Background(), "2024-03"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestCreatePublishesEvent(t *testing.T) {
	store := &fakeStore{nextID: 42}
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	items := []core.RawItem{core.NewRawItem("Lunch", 100)}
	id, err := svc.Create(context.Background(), core.ExpenseInput{Date: "2024-03-05", Items: items})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}
	if store.lastDate != "2024-03-05" || len(store.lastItems) != 1 {
		t.Fatalf("store not called with input: %q %v", store.lastDate, store.lastItems)
	}
	if len(pub.events) != 1 || pub.events[0] != (published{amqp.EventCreated, 42}) {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestCreateRejectsEmptyDate(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	if _, err := svc.Create(context.Background(), core.ExpenseInput{}); !errors.Is(err, core.ErrEmptyDate) {
		t.Fatalf("expected ErrEmptyDate, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatal("nothing should be published for a rejected create")
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := NewExpenseService(&fakeStore{nextID: 1, matched: true}, pub)
	ctx := context.Background()

	if _, err := svc.Create(ctx, core.ExpenseInput{Date: "2024-03-05"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, 1, core.ExpenseInput{Date: "2024-03-05"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(pub.events) != 3 {
		t.Fatalf("expected three publish attempts, got %d", len(pub.events))
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name       string
		matched    bool
		wantEvents int
	}{
		{"existing entry", true, 1},
		{"missing entry", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			svc := NewExpenseService(&fakeStore{matched: tt.matched}, pub)

			matched, err := svc.Update(context.Background(), 5, core.ExpenseInput{Date: "2024-03-05"})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if matched != tt.matched {
				t.Fatalf("matched = %v, want %v", matched, tt.matched)
			}
			if len(pub.events) != tt.wantEvents {
				t.Fatalf("events = %+v", pub.events)
			}
		})
	}
}

func TestRejectsNonPositiveIDs(t *testing.T) {
	svc := NewExpenseService(&fakeStore{}, nil)
	ctx := context.Background()

	if _, err := svc.Get(ctx, 0); !errors.Is(err, core.ErrInvalidID) {
		t.Errorf("get: %v", err)
	}
	if _, err := svc.Update(ctx, -1, core.ExpenseInput{Date: "2024-03-05"}); !errors.Is(err, core.ErrInvalidID) {
		t.Errorf("update: %v", err)
	}
	if err := svc.Delete(ctx, 0); !errors.Is(err, core.ErrInvalidID) {
		t.Errorf("delete: %v", err)
	}
}

func TestDeletePublishesEvenForMissingID(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	if err := svc.Delete(context.Background(), 9); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != 9 {
		t.Fatalf("store delete not called: %v", store.deleted)
	}
	if len(pub.events) != 1 || pub.events[0].eventType != amqp.EventDeleted {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	svc := NewExpenseService(&fakeStore{}, nil)
	entry, err := svc.Get(context.Background(), 3)
	if err != nil || entry != nil {
		t.Fatalf("expected nil, nil; got %v, %v", entry, err)
	}
}
