package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/sidekick/internal/llm"
	"github.com/raphaelgruber/sidekick/internal/metrics"
	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/reconcile"
	"github.com/raphaelgruber/sidekick/internal/session"
	"github.com/raphaelgruber/sidekick/internal/store"
)

// Theme holds the color scheme for chat output.
type Theme struct {
	Assistant lipgloss.Color
	Heading   lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
}

var defaultTheme = Theme{
	Assistant: lipgloss.Color("#5FAFD7"), // light blue
	Heading:   lipgloss.Color("#D7AF5F"), // amber
	Success:   lipgloss.Color("#00D787"), // green
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
}

// renderer writes styled output for one writer. Styles degrade to plain
// text when the writer is not a terminal.
type renderer struct {
	w     io.Writer
	lg    *lipgloss.Renderer
	theme Theme
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w, lg: lipgloss.NewRenderer(w), theme: defaultTheme}
}

func (r *renderer) assistantStyle() lipgloss.Style {
	return r.lg.NewStyle().Foreground(r.theme.Assistant)
}

func (r *renderer) headingStyle() lipgloss.Style {
	return r.lg.NewStyle().Foreground(r.theme.Heading).Bold(true)
}

func (r *renderer) successStyle() lipgloss.Style {
	return r.lg.NewStyle().Foreground(r.theme.Success)
}

func (r *renderer) errorStyle() lipgloss.Style {
	return r.lg.NewStyle().Foreground(r.theme.Error).Bold(true)
}

func (r *renderer) hintStyle() lipgloss.Style {
	return r.lg.NewStyle().Foreground(r.theme.Hint).Italic(true)
}

func (r *renderer) println(s string) {
	fmt.Fprintln(r.w, s)
}

// followup prints the assistant's message for the round.
func (r *renderer) followup(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	r.println(r.assistantStyle().Render("sidekick: " + text))
}

// reports prints one section per collection that changed. Collections
// with nothing inserted or updated are skipped.
func (r *renderer) reports(reports []reconcile.Report) {
	for _, rep := range reports {
		if rep.Empty() {
			continue
		}
		r.println(r.headingStyle().Render(fmt.Sprintf("Updated %s", rep.Kind)))
		for _, e := range rep.Inserted {
			r.println(r.successStyle().Render(fmt.Sprintf("  + %s (%s)", e.Label(), e.ID())))
		}
		for _, e := range rep.Updated {
			r.println(fmt.Sprintf("  ~ %s (%s)", e.Label(), e.ID()))
		}
	}
}

// newPrompt shows the assistant's suggested system prompt.
func (r *renderer) newPrompt(prompt string) {
	if strings.TrimSpace(prompt) == "" {
		return
	}
	r.println(r.hintStyle().Render("Suggested system prompt:"))
	r.println(r.hintStyle().Render(prompt))
}

// usage prints token accounting for one round.
func (r *renderer) usage(u models.Usage) {
	r.println(r.hintStyle().Render(fmt.Sprintf("tokens: %d in, %d out", u.InputTokens, u.OutputTokens)))
}

// err explains a failed round.
func (r *renderer) err(err error) {
	var (
		gwErr    *session.GatewayError
		flushErr *session.FlushError
		ioErr    *store.IOError
	)

	switch {
	case errors.As(err, &flushErr):
		r.println(r.errorStyle().Render("Could not save " + kindList(flushErr.FailedKinds())))
		if len(flushErr.Written) > 0 {
			r.println(r.successStyle().Render("Saved " + kindList(flushErr.Written)))
		}
		for _, f := range flushErr.Failed {
			r.println(r.hintStyle().Render(fmt.Sprintf("  %s: %v", f.Kind, f.Err)))
		}
		r.println(r.hintStyle().Render("The conversation is kept; reply to try again."))

	case errors.As(err, &gwErr) && errors.Is(err, llm.ErrFatalAPI):
		r.println(r.errorStyle().Render("Assistant rejected the request: " + gwErr.Err.Error()))
		r.println(r.hintStyle().Render("Check your API key and account limits."))

	case errors.As(err, &gwErr):
		r.println(r.errorStyle().Render("Assistant error: " + gwErr.Err.Error()))
		r.println(r.hintStyle().Render("Your message is kept; send another line to retry."))

	case errors.As(err, &ioErr):
		r.println(r.errorStyle().Render(fmt.Sprintf("Storage error (%s %s): %v", ioErr.Op, ioErr.Kind, ioErr.Err)))

	default:
		r.println(r.errorStyle().Render("Error: " + err.Error()))
	}
}

// summary prints the process statistics collected during the session.
func (r *renderer) summary(snap metrics.Snapshot) {
	r.println(r.headingStyle().Render(fmt.Sprintf("Session statistics (%s)", snap.Uptime.Round(time.Second))))
	r.opStats("Assistant calls", snap.LLMGenerate)
	r.opStats("Store loads", snap.StoreLoad)
	r.opStats("Store saves", snap.StoreSave)
	r.opStats("Reconciles", snap.Reconcile)
}

func (r *renderer) opStats(name string, op *metrics.OpStats) {
	if op == nil {
		return
	}
	r.println(fmt.Sprintf("  %-16s %d calls, %d errors, avg %s, max %s",
		name, op.Count, op.Errors, op.Avg().Round(time.Millisecond), op.Max.Round(time.Millisecond)))
	if op.Tokens != nil {
		r.println(fmt.Sprintf("  %-16s %d in, %d out", "", op.Tokens.Input.Total, op.Tokens.Output.Total))
	}
}

// entities prints a collection as a list.
func (r *renderer) entities(kind models.Kind, entities []models.Entity) {
	if len(entities) == 0 {
		r.println(r.hintStyle().Render(fmt.Sprintf("No %s.", kind)))
		return
	}
	r.println(r.headingStyle().Render(fmt.Sprintf("%s (%d)", strings.ToUpper(string(kind[:1]))+string(kind[1:]), len(entities))))
	for _, e := range entities {
		if e.Label() == e.ID() {
			r.println("- " + e.ID())
			continue
		}
		r.println(fmt.Sprintf("- %s: %s", e.ID(), e.Label()))
	}
}

func kindList(kinds []models.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
