// Package watch surfaces topics that a failed workflow left without their
// questions. Nothing is deleted; orphans are reported until an operator acts.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/quiz-console/internal/events"
	"github.com/terra-clan/quiz-console/internal/journal"
)

// Lister reads recorded workflows by state
type Lister interface {
	ListByState(ctx context.Context, state journal.State) ([]journal.Entry, error)
}

// Publisher receives one event per newly seen orphan
type Publisher interface {
	Publish(e events.Event)
}

// OrphanWatcher periodically scans the journal for attach_failed workflows
type OrphanWatcher struct {
	journal  Lister
	notify   Publisher
	interval time.Duration

	mu   sync.Mutex
	seen map[string]bool
}

// NewOrphanWatcher creates a new watcher
func NewOrphanWatcher(j Lister, notify Publisher, interval time.Duration) *OrphanWatcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &OrphanWatcher{
		journal:  j,
		notify:   notify,
		interval: interval,
		seen:     make(map[string]bool),
	}
}

// Start begins the watcher in a goroutine
func (w *OrphanWatcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// run is the main loop for the watcher
func (w *OrphanWatcher) run(ctx context.Context) {
	slog.Info("orphan watcher started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run immediately on start
	w.Scan(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("orphan watcher stopped")
			return
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan reports orphans not reported before and returns how many it found
func (w *OrphanWatcher) Scan(ctx context.Context) int {
	slog.Debug("running orphan scan")

	orphans, err := w.journal.ListByState(ctx, journal.StateAttachFailed)
	if err != nil {
		slog.Error("failed to list orphaned topics", "error", err)
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	fresh := 0
	for _, e := range orphans {
		if w.seen[e.WorkflowID] {
			continue
		}
		w.seen[e.WorkflowID] = true
		fresh++

		slog.Warn("topic has no attached questions",
			"workflow_id", e.WorkflowID,
			"topic_id", e.TopicID,
			"topic", e.TopicName,
			"questions", len(e.Questions),
			"failed_at", e.UpdatedAt,
			"error", e.Error,
		)

		if w.notify != nil {
			w.notify.Publish(events.Event{
				Entity: "topics",
				Op:     "attach",
				Status: string(journal.StateAttachFailed),
				Error:  e.Error,
				Target: e.TopicID,
			})
		}
	}

	if fresh > 0 {
		slog.Info("found orphaned topics", "new", fresh, "total", len(orphans))
	}
	return fresh
}
