// Package metrics keeps in-process counters for one sidekick run: how long
// assistant calls, store access and reconciliation took, and how many tokens
// the assistant consumed. Nothing is exported outside the process; the chat
// loop prints a summary on exit in verbose mode.
package metrics

import (
	"sync"
	"time"
)

// Op names a measured operation.
type Op string

const (
	OpLLMGenerate Op = "llm_generate"
	OpStoreLoad   Op = "store_load"
	OpStoreSave   Op = "store_save"
	OpReconcile   Op = "reconcile"
)

// Range summarizes a series of token counts.
type Range struct {
	Total int64
	Min   int64
	Max   int64
	Avg   float64
}

// TokenStats is the token usage of an assistant operation.
type TokenStats struct {
	Input  Range
	Output Range
}

// OpStats is the computed view of one operation.
type OpStats struct {
	Count  int64
	Errors int64
	Total  time.Duration
	Min    time.Duration
	Max    time.Duration

	// Tokens is nil for operations that never reported usage.
	Tokens *TokenStats
}

// Avg returns the mean duration per call.
func (s OpStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Snapshot is the collector state at a point in time. Operations that were
// never recorded are nil.
type Snapshot struct {
	Uptime      time.Duration
	LLMGenerate *OpStats
	StoreLoad   *OpStats
	StoreSave   *OpStats
	Reconcile   *OpStats
}

// extent tracks the smallest and largest observation.
type extent struct {
	lo, hi int64
	seen   bool
}

func (e *extent) add(v int64) {
	if !e.seen || v < e.lo {
		e.lo = v
	}
	if !e.seen || v > e.hi {
		e.hi = v
	}
	e.seen = true
}

type series struct {
	count   int64
	errors  int64
	elapsed time.Duration
	latency extent

	tokens       bool
	input        int64
	output       int64
	inputExtent  extent
	outputExtent extent
}

func (s *series) observe(d time.Duration) {
	s.count++
	s.elapsed += d
	s.latency.add(int64(d))
}

func (s *series) stats() *OpStats {
	if s == nil || s.count == 0 {
		return nil
	}
	out := &OpStats{
		Count:  s.count,
		Errors: s.errors,
		Total:  s.elapsed,
		Min:    time.Duration(s.latency.lo),
		Max:    time.Duration(s.latency.hi),
	}
	if s.tokens {
		out.Tokens = &TokenStats{
			Input:  s.tokenRange(s.input, s.inputExtent),
			Output: s.tokenRange(s.output, s.outputExtent),
		}
	}
	return out
}

func (s *series) tokenRange(total int64, e extent) Range {
	return Range{
		Total: total,
		Min:   e.lo,
		Max:   e.hi,
		Avg:   float64(total) / float64(s.count),
	}
}

// Collector aggregates timings and token usage. It is safe for concurrent
// use, and a nil *Collector ignores every record call.
type Collector struct {
	mu      sync.Mutex
	started time.Time
	ops     map[Op]*series
}

// NewCollector returns an empty collector whose uptime starts now.
func NewCollector() *Collector {
	return &Collector{
		started: time.Now(),
		ops:     make(map[Op]*series),
	}
}

func (c *Collector) series(op Op) *series {
	s, ok := c.ops[op]
	if !ok {
		s = &series{}
		c.ops[op] = s
	}
	return s
}

// RecordTiming records a successful call.
func (c *Collector) RecordTiming(op Op, d time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series(op).observe(d)
}

// RecordError records a failed call. Failed calls count toward timings.
func (c *Collector) RecordError(op Op, d time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.series(op)
	s.observe(d)
	s.errors++
}

// RecordLLMUsage records a successful assistant call with its token usage.
func (c *Collector) RecordLLMUsage(op Op, d time.Duration, input, output int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.series(op)
	s.observe(d)
	s.tokens = true
	s.input += input
	s.output += output
	s.inputExtent.add(input)
	s.outputExtent.add(output)
}

// Snapshot returns the current statistics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Uptime:      time.Since(c.started),
		LLMGenerate: c.ops[OpLLMGenerate].stats(),
		StoreLoad:   c.ops[OpStoreLoad].stats(),
		StoreSave:   c.ops[OpStoreSave].stats(),
		Reconcile:   c.ops[OpReconcile].stats(),
	}
}
