package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/raphaelgruber/sidekick/internal/metrics"
	"github.com/raphaelgruber/sidekick/internal/models"
)

// Instrumented wraps a Store and records load/save timings.
type Instrumented struct {
	Store
	collector *metrics.Collector
}

// WithMetrics wraps s so every call is recorded in collector.
func WithMetrics(s Store, collector *metrics.Collector) *Instrumented {
	return &Instrumented{Store: s, collector: collector}
}

// Load implements Store.
func (s *Instrumented) Load(ctx context.Context, kind models.Kind) ([]json.RawMessage, error) {
	start := time.Now()
	records, err := s.Store.Load(ctx, kind)
	s.record(metrics.OpStoreLoad, time.Since(start), err)
	return records, err
}

// Save implements Store.
func (s *Instrumented) Save(ctx context.Context, kind models.Kind, records []json.RawMessage) error {
	start := time.Now()
	err := s.Store.Save(ctx, kind, records)
	s.record(metrics.OpStoreSave, time.Since(start), err)
	return err
}

func (s *Instrumented) record(op metrics.Op, d time.Duration, err error) {
	if err != nil {
		s.collector.RecordError(op, d)
		return
	}
	s.collector.RecordTiming(op, d)
}
