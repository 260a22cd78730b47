// Package session runs the dialogue state machine: it feeds user turns to
// the assistant and flushes a thread's records once the assistant declares
// it complete.
package session

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/raphaelgruber/sidekick/internal/llm"
	"github.com/raphaelgruber/sidekick/internal/metrics"
	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/reconcile"
	"github.com/raphaelgruber/sidekick/internal/store"
)

// Gateway produces the assistant's response for a round.
type Gateway interface {
	Respond(ctx context.Context, req llm.Request) (*models.Response, error)
}

// Config is fixed for the lifetime of a session.
type Config struct {
	SystemPrompt string
}

// Round is the outcome of one submitted utterance.
type Round struct {
	Response *models.Response

	// Reports holds one change report per collection written during a flush.
	Reports []reconcile.Report

	// Flushed is true when the thread completed and every affected
	// collection was written.
	Flushed bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records reconcile timings in the collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) { s.collector = c }
}

// withThreadIDs replaces the thread id generator.
func withThreadIDs(next func() string) Option {
	return func(s *Session) { s.newThreadID = next }
}

// Session holds one dialogue thread at a time. It is not safe for
// concurrent use.
type Session struct {
	cfg        Config
	gateway    Gateway
	store      store.Store
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
	collector  *metrics.Collector

	state       State
	history     []models.Turn
	thread      int
	threadID    string
	newThreadID func() string
}

// New creates an idle session.
func New(cfg Config, gw Gateway, st store.Store, opts ...Option) *Session {
	s := &Session{
		cfg:         cfg,
		gateway:     gw,
		store:       st,
		logger:      slog.Default(),
		state:       Idle,
		newThreadID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reconciler = reconcile.NewReconciler(st, s.logger, s.collector)
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// History returns a copy of the turns in the current thread.
func (s *Session) History() []models.Turn {
	out := make([]models.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Thread returns the number of user turns in the current thread.
func (s *Session) Thread() int {
	return s.thread
}

// ThreadID identifies the current thread. It is empty until the first
// submit of a thread.
func (s *Session) ThreadID() string {
	return s.threadID
}

// Shutdown ends the session without flushing the pending thread.
func (s *Session) Shutdown() {
	if s.state != Shutdown && len(s.history) > 0 {
		s.logger.Info("discarding unflushed thread", "thread_id", s.threadID, "turns", len(s.history))
	}
	s.state = Shutdown
}

// Submit runs one round for the user's text.
//
// A gateway or snapshot failure leaves the state as it was before the call
// and keeps the user turn in the history. When the assistant completes the
// thread, each affected collection is reconciled; if any fails, Submit
// returns the Round together with a *FlushError and the thread stays open.
func (s *Session) Submit(ctx context.Context, text string) (*Round, error) {
	if s.state == Shutdown {
		return nil, ErrShutdown
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	prev := s.state
	if s.threadID == "" {
		s.threadID = s.newThreadID()
	}
	s.history = append(s.history, models.Turn{Role: models.RoleUser, Content: text})
	s.thread++
	s.state = Active

	logger := s.logger.With("thread_id", s.threadID)

	snapshot, err := store.LoadSnapshot(ctx, s.store)
	if err != nil {
		s.state = prev
		logger.Warn("load snapshot failed", "error", err)
		return nil, err
	}

	resp, err := s.gateway.Respond(ctx, llm.Request{
		SystemPrompt: s.cfg.SystemPrompt,
		Snapshot:     snapshot,
		History:      s.History(),
	})
	if err != nil {
		s.state = prev
		return nil, &GatewayError{Err: err}
	}

	s.history = append(s.history, models.Turn{Role: models.RoleAssistant, Content: resp.Raw})
	round := &Round{Response: resp}

	if !resp.Complete() {
		logger.Debug("thread continues", "turns", len(s.history))
		return round, nil
	}

	s.state = Complete
	reports, err := s.flush(ctx, logger, resp)
	round.Reports = reports
	if err != nil {
		s.state = Active
		return round, err
	}

	logger.Info("thread complete", "turns", len(s.history), "collections", len(reports))
	s.reset()
	round.Flushed = true
	return round, nil
}

// flush reconciles every affected collection independently. A failure in
// one does not stop the others.
func (s *Session) flush(ctx context.Context, logger *slog.Logger, resp *models.Response) ([]reconcile.Report, error) {
	var (
		reports  []reconcile.Report
		flushErr FlushError
	)
	for _, kind := range resp.Affected() {
		report, err := s.reconciler.Apply(ctx, kind, resp.Data.Batch(kind))
		if err != nil {
			flushErr.Failed = append(flushErr.Failed, CollectionFailure{Kind: kind, Err: err})
			continue
		}
		if !report.Empty() {
			flushErr.Written = append(flushErr.Written, kind)
		}
		reports = append(reports, report)
	}

	if len(flushErr.Failed) > 0 {
		logger.Warn("flush incomplete",
			"written", joinKinds(flushErr.Written),
			"failed", joinKinds(flushErr.FailedKinds()))
		return reports, &flushErr
	}
	return reports, nil
}

func (s *Session) reset() {
	s.history = nil
	s.thread = 0
	s.threadID = ""
	s.state = Idle
}
