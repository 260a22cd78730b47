package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/sidekick/internal/metrics"
	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/store"
)

// Reconciler merges response batches into a store, one collection at a time.
type Reconciler struct {
	store     store.Store
	logger    *slog.Logger
	collector *metrics.Collector
}

// NewReconciler creates a reconciler over st. collector may be nil.
func NewReconciler(st store.Store, logger *slog.Logger, collector *metrics.Collector) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: st, logger: logger, collector: collector}
}

// Apply merges batch into the collection named by kind and saves it.
// Input errors are detected before the store is written, so a rejected
// batch leaves the collection as it was.
func (r *Reconciler) Apply(ctx context.Context, kind models.Kind, batch []json.RawMessage) (Report, error) {
	start := time.Now()

	var (
		report Report
		err    error
	)
	switch kind {
	case models.KindPeople:
		report, err = apply[models.Person](ctx, r.store, kind, batch)
	case models.KindTasks:
		report, err = apply[models.Task](ctx, r.store, kind, batch)
	case models.KindTopics:
		report, err = apply[models.Topic](ctx, r.store, kind, batch)
	default:
		err = &InputError{Kind: kind, Err: fmt.Errorf("unknown collection %q", kind)}
	}

	duration := time.Since(start)
	if err != nil {
		r.collector.RecordError(metrics.OpReconcile, duration)
		r.logger.Warn("reconcile failed", "kind", kind, "records", len(batch), "error", err)
		return Report{Kind: kind}, err
	}

	r.collector.RecordTiming(metrics.OpReconcile, duration)
	r.logger.Info("reconciled collection",
		"kind", kind,
		"inserted", len(report.Inserted),
		"updated", len(report.Updated),
		"duration_ms", duration.Milliseconds(),
	)
	return report, nil
}

func apply[E models.Entity](ctx context.Context, st store.Store, kind models.Kind, batch []json.RawMessage) (Report, error) {
	incoming, err := models.DecodeBatch[E](batch)
	if err != nil {
		return Report{}, &InputError{Kind: kind, Err: err}
	}
	if len(incoming) == 0 {
		return Report{Kind: kind, Inserted: []models.Entity{}, Updated: []models.Entity{}}, nil
	}

	existing, err := store.LoadCollection[E](ctx, st, kind)
	if err != nil {
		return Report{}, err
	}

	res, err := Merge(existing, incoming)
	if err != nil {
		return Report{}, err
	}

	if err := store.SaveCollection(ctx, st, kind, res.Merged); err != nil {
		return Report{}, err
	}
	return NewReport(res), nil
}
