package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/core"
)

// ExpenseStore is the persistence the service needs. Implemented by
// storage.SQLiteRepository.
type ExpenseStore interface {
	List(ctx context.Context, month string) ([]core.ExpenseEntry, error)
	MonthTotal(ctx context.Context, month string) (int64, error)
	Get(ctx context.Context, id int64) (*core.ExpenseEntry, error)
	Create(ctx context.Context, date string, items []core.RawItem) (int64, error)
	Update(ctx context.Context, id int64, date string, items []core.RawItem) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// EventPublisher announces changes to expense entries.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, eventType amqp.EventType, id int64) error
}

// ExpenseService orchestrates expense operations across SQLite and AMQP.
type ExpenseService struct {
	store     ExpenseStore
	publisher EventPublisher
}

// NewExpenseService creates the service. publisher may be nil, in which
// case no events are sent.
func NewExpenseService(store ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
	}
}

// List returns the entries for month together with their summed total.
// The two reads run concurrently.
func (s *ExpenseService) List(ctx context.Context, month string) (core.ExpenseList, error) {
	var (
		entries []core.ExpenseEntry
		total   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.List(gctx, month)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.MonthTotal(gctx, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.ExpenseList{}, fmt.Errorf("list expenses: %w", err)
	}

	if entries == nil {
		entries = []core.ExpenseEntry{}
	}
	return core.ExpenseList{MonthTotal: total, Items: entries}, nil
}

// Get returns the entry or nil when absent.
func (s *ExpenseService) Get(ctx context.Context, id int64) (*core.ExpenseEntry, error) {
	if id <= 0 {
		return nil, core.ErrInvalidID
	}
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return entry, nil
}

// Create stores a new entry and publishes a created event.
func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.Create(ctx, in.Date, in.Items)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.EventCreated, id)
	return id, nil
}

// Update replaces an entry. A missing id is reported through matched=false,
// not as an error, and publishes nothing.
func (s *ExpenseService) Update(ctx context.Context, id int64, in core.ExpenseInput) (bool, error) {
	if id <= 0 {
		return false, core.ErrInvalidID
	}
	if err := in.Validate(); err != nil {
		return false, err
	}

	matched, err := s.store.Update(ctx, id, in.Date, in.Items)
	if err != nil {
		return false, fmt.Errorf("update expense: %w", err)
	}

	if matched {
		s.publish(ctx, amqp.EventUpdated, id)
	}
	return matched, nil
}

// Delete removes an entry; deleting a missing id succeeds.
func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return core.ErrInvalidID
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publish(ctx, amqp.EventDeleted, id)
	return nil
}

// publish never fails the caller: the entry is already committed locally.
func (s *ExpenseService) publish(ctx context.Context, eventType amqp.EventType, id int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping event", "type", eventType, "id", id)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, eventType, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", eventType,
			"id", id,
			"error", err)
	}
}
