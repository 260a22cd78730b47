// Package llm turns the running dialogue into a structured assistant
// response through one of several model providers.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/sidekick/internal/config"
	"github.com/raphaelgruber/sidekick/internal/metrics"
	"github.com/raphaelgruber/sidekick/internal/models"
)

// Request is everything the assistant sees for one round.
type Request struct {
	SystemPrompt string
	Snapshot     models.Snapshot
	History      []models.Turn
}

// completion is the raw text a provider returned plus its token accounting.
type completion struct {
	text  string
	usage models.Usage
}

// backend is a single provider client.
type backend interface {
	generate(ctx context.Context, msgs []message) (completion, error)
}

// Gateway sends requests to the configured provider and parses the reply.
type Gateway struct {
	backend   backend
	provider  string
	model     string
	collector *metrics.Collector
	logger    *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMetrics records every call in the collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Gateway) { g.collector = c }
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a gateway for the provider named in cfg.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Gateway, error) {
	model := cfg.LLMModel
	if model == "" {
		model = config.DefaultModel(cfg.LLMProvider)
	}

	var (
		b   backend
		err error
	)
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		b, err = newGeminiBackend(ctx, cfg.APIKey, model)
	default:
		b, err = newLangchainBackendFromConfig(ctx, cfg, model)
	}
	if err != nil {
		return nil, err
	}

	g := newGateway(b, opts...)
	g.provider = cfg.LLMProvider
	g.model = model
	return g, nil
}

func newGateway(b backend, opts ...Option) *Gateway {
	g := &Gateway{backend: b, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider returns the configured provider name.
func (g *Gateway) Provider() string {
	return g.provider
}

// Model returns the model name requests are sent to.
func (g *Gateway) Model() string {
	return g.model
}

// Respond asks the assistant for the next response in the thread.
// Transport failures are returned as is, or wrapped in ErrFatalAPI for
// account-level problems. Replies that do not parse yield ErrMalformedResponse.
func (g *Gateway) Respond(ctx context.Context, req Request) (*models.Response, error) {
	msgs, err := buildMessages(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := g.backend.generate(ctx, msgs)
	elapsed := time.Since(start)
	if err != nil {
		g.collector.RecordError(metrics.OpLLMGenerate, elapsed)
		g.logger.Warn("assistant call failed",
			"provider", g.provider,
			"model", g.model,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return nil, wrapFatalError(fmt.Errorf("generate: %w", err))
	}
	g.collector.RecordLLMUsage(metrics.OpLLMGenerate, elapsed, out.usage.InputTokens, out.usage.OutputTokens)

	resp, err := ParseResponse(out.text)
	if err != nil {
		g.logger.Warn("unparseable assistant reply", "error", err, "reply", out.text)
		return nil, err
	}
	resp.Usage = out.usage

	g.logger.Debug("assistant responded",
		"provider", g.provider,
		"model", g.model,
		"status", resp.Status,
		"input_tokens", out.usage.InputTokens,
		"output_tokens", out.usage.OutputTokens,
		"duration_ms", elapsed.Milliseconds())
	return resp, nil
}
