package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/raphaelgruber/sidekick/internal/llm"
	"github.com/raphaelgruber/sidekick/internal/metrics"
	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/session"
	"github.com/raphaelgruber/sidekick/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyGateway answers each call with the next scripted reply. An empty
// reply is returned as a transport error.
type replyGateway struct {
	replies []string
	calls   int
}

func (g *replyGateway) Respond(_ context.Context, _ llm.Request) (*models.Response, error) {
	if g.calls >= len(g.replies) {
		return nil, errors.New("no more replies")
	}
	reply := g.replies[g.calls]
	g.calls++
	if reply == "" {
		return nil, errors.New("connection refused")
	}
	resp, err := llm.ParseResponse(reply)
	if err != nil {
		return nil, err
	}
	resp.Usage = models.Usage{InputTokens: 10, OutputTokens: 2}
	return resp, nil
}

type chatHarness struct {
	gw        *replyGateway
	store     *store.MemoryStore
	collector *metrics.Collector
	out       *bytes.Buffer
	loop      *chatLoop
}

func newChatHarness(input string, replies ...string) *chatHarness {
	h := &chatHarness{
		gw:        &replyGateway{replies: replies},
		store:     store.NewMemoryStore(),
		collector: metrics.NewCollector(),
		out:       &bytes.Buffer{},
	}
	st := store.WithMetrics(h.store, h.collector)
	sess := session.New(session.Config{SystemPrompt: "sys"}, h.gw, st, session.WithMetrics(h.collector))
	h.loop = &chatLoop{
		session:   sess,
		in:        strings.NewReader(input),
		render:    newRenderer(h.out),
		collector: h.collector,
	}
	return h
}

const (
	askReply  = `{"instructions": {"status": "incomplete", "followup": "When is it due?"}}`
	saveReply = `{
		"instructions": {"status": "complete", "followup": "Saved.", "new_prompt": "Be brief.", "affected_entities": ["tasks"]},
		"data": {"tasks": [{"task_id": "t1", "description": "Write report"}]}
	}`
)

func TestChatLoopSkipsBlankAndStopsAtExit(t *testing.T) {
	h := newChatHarness("add a task\n\n   \nExit\nnever sent\n", askReply)

	require.NoError(t, h.loop.run(context.Background()))
	assert.Equal(t, 1, h.gw.calls)
	assert.Contains(t, h.out.String(), "sidekick: When is it due?")
	assert.NotContains(t, h.out.String(), "> ")
}

func TestChatLoopFlushShowsReport(t *testing.T) {
	h := newChatHarness("add a task\nfriday\n", askReply, saveReply)

	require.NoError(t, h.loop.run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "sidekick: Saved.")
	assert.Contains(t, out, "Updated tasks")
	assert.Contains(t, out, "+ Write report (t1)")
	assert.Contains(t, out, "Suggested system prompt:")
	assert.Contains(t, out, "Be brief.")

	tasks, err := store.LoadCollection[models.Task](context.Background(), h.store, models.KindTasks)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].TaskID)
}

func TestChatLoopContinuesAfterGatewayError(t *testing.T) {
	h := newChatHarness("first\nsecond\n", "", askReply)

	require.NoError(t, h.loop.run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Assistant error")
	assert.Contains(t, out, "sidekick: When is it due?")
	assert.Equal(t, 2, h.gw.calls)
}

func TestChatLoopVerbose(t *testing.T) {
	h := newChatHarness("hello\nexit\n", askReply)
	h.loop.verbose = true

	require.NoError(t, h.loop.run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "tokens: 10 in, 2 out")
	assert.Contains(t, out, "Session statistics")
	assert.Contains(t, out, "Store loads")
}

func TestChatLoopPrompt(t *testing.T) {
	h := newChatHarness("exit\n")
	h.loop.prompt = true

	require.NoError(t, h.loop.run(context.Background()))
	assert.Equal(t, "> ", h.out.String())
}

func TestChatLoopCancelled(t *testing.T) {
	h := newChatHarness("hello\n", askReply)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.loop.run(ctx))
	assert.Equal(t, 0, h.gw.calls)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(strings.NewReader("")))
}
