package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raphaelgruber/sidekick/internal/llm"
	"github.com/raphaelgruber/sidekick/internal/metrics"
	"github.com/raphaelgruber/sidekick/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const exitCommand = "exit"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a conversation (default command)",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := openEnv(cmd, readWrite)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			e.logger.Warn("close failed", "error", err)
		}
	}()

	if err := e.cfg.Validate(); err != nil {
		return err
	}

	gw, err := llm.New(ctx, e.cfg, llm.WithMetrics(e.collector), llm.WithLogger(e.logger))
	if err != nil {
		return fmt.Errorf("init assistant: %w", err)
	}
	e.logger.Info("starting chat", "provider", gw.Provider(), "model", gw.Model(), "backend", e.cfg.StoreBackend, "dry_run", dryRun)

	sess := session.New(
		session.Config{SystemPrompt: e.cfg.SystemPrompt},
		gw, e.store,
		session.WithLogger(e.logger),
		session.WithMetrics(e.collector),
	)

	in := cmd.InOrStdin()
	loop := &chatLoop{
		session:   sess,
		in:        in,
		render:    newRenderer(cmd.OutOrStdout()),
		prompt:    isTerminal(in),
		verbose:   verbose,
		collector: e.collector,
	}
	return loop.run(ctx)
}

// submitter is the part of the session the loop drives.
type submitter interface {
	Submit(ctx context.Context, text string) (*session.Round, error)
	Shutdown()
}

// chatLoop reads one utterance per line until exit, EOF or cancellation.
type chatLoop struct {
	session   submitter
	in        io.Reader
	render    *renderer
	prompt    bool
	verbose   bool
	collector *metrics.Collector
}

func (l *chatLoop) run(ctx context.Context) error {
	defer l.session.Shutdown()
	if l.verbose {
		defer func() { l.render.summary(l.collector.Snapshot()) }()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, readErr := readLines(ctx, l.in)
	for {
		if l.prompt {
			fmt.Fprint(l.render.w, "> ")
		}

		var line string
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-lines:
			if !ok {
				return <-readErr
			}
			line = strings.TrimSpace(text)
		}

		if strings.EqualFold(line, exitCommand) {
			return nil
		}
		if line == "" {
			continue
		}

		round, err := l.session.Submit(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
		l.show(round, err)
	}
}

// readLines feeds r to a channel line by line so the loop can also wait on
// ctx. The error channel receives the scanner error once lines is closed.
func readLines(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func (l *chatLoop) show(round *session.Round, err error) {
	if round != nil {
		l.render.followup(round.Response.Followup)
		l.render.reports(round.Reports)
		if l.verbose {
			l.render.usage(round.Response.Usage)
		}
		if round.Flushed {
			l.render.newPrompt(round.Response.NewPrompt)
		}
	}
	if err != nil && !errors.Is(err, session.ErrEmptyInput) {
		l.render.err(err)
	}
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
