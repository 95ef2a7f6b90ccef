package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/metrics"
	"ledger/internal/sheets"
)

// EntrySource reads the authoritative entries. Implemented by storage.SQLiteRepository.
type EntrySource interface {
	Get(ctx context.Context, id int64) (*core.ExpenseEntry, error)
	List(ctx context.Context, month string) ([]core.ExpenseEntry, error)
}

// EventConsumer delivers expense events. Implemented by amqp.Client.
type EventConsumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// SyncWorker mirrors ledger entries into an external ExpenseMirror, reacting
// to events and periodically rewriting the mirror from the database.
type SyncWorker struct {
	source   EntrySource
	mirror   sheets.ExpenseMirror
	interval time.Duration
}

func NewSyncWorker(source EntrySource, mirror sheets.ExpenseMirror, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		source:   source,
		mirror:   mirror,
		interval: interval,
	}
}

// HandleEvent applies one event to the mirror. The entry is re-read so the
// mirror reflects the current row; an entry gone by then is removed.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordMirrorSync(string(ev.Type), time.Since(start), err == nil)
	}()

	slog.InfoContext(ctx, "Processing expense event", "type", ev.Type, "id", ev.ID)

	switch ev.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		entry, err := w.source.Get(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("get expense %d: %w", ev.ID, err)
		}
		if entry == nil {
			slog.InfoContext(ctx, "Expense no longer exists, removing from mirror", "id", ev.ID)
			return w.deleteEntry(ctx, ev.ID)
		}
		if err := w.mirror.UpsertEntry(ctx, *entry); err != nil {
			return fmt.Errorf("upsert expense %d: %w", ev.ID, err)
		}
		return nil
	case amqp.EventDeleted:
		return w.deleteEntry(ctx, ev.ID)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

func (w *SyncWorker) deleteEntry(ctx context.Context, id int64) error {
	if err := w.mirror.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

// Reconcile rewrites the mirror with every entry in the database.
// It recovers from lost events and worker downtime.
func (w *SyncWorker) Reconcile(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordMirrorSync("reconcile", time.Since(start), err == nil)
	}()

	entries, err := w.source.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}
	if err := w.mirror.ReplaceAll(ctx, entries); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}

	slog.InfoContext(ctx, "Mirror reconciled", "count", len(entries), "duration", time.Since(start))
	return nil
}

// Run reconciles once, then consumes events (when consumer is non-nil) and
// reconciles every interval until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, consumer EventConsumer) error {
	if err := w.Reconcile(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup reconcile failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeExpenseEvents(gctx, w.HandleEvent)
		})
	} else {
		slog.InfoContext(ctx, "No event consumer configured, relying on periodic reconcile")
	}

	if w.interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := w.Reconcile(gctx); err != nil {
						slog.ErrorContext(gctx, "Periodic reconcile failed", "error", err)
					}
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
