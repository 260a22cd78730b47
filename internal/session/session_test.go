package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/raphaelgruber/sidekick/internal/llm"
	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/reconcile"
	"github.com/raphaelgruber/sidekick/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedGateway replies with canned JSON, one entry per call.
type scriptedGateway struct {
	t        *testing.T
	replies  []string
	errs     []error
	requests []llm.Request
}

func (g *scriptedGateway) Respond(_ context.Context, req llm.Request) (*models.Response, error) {
	g.requests = append(g.requests, req)
	i := len(g.requests) - 1
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	require.Less(g.t, i, len(g.replies), "unexpected gateway call")
	return llm.ParseResponse(g.replies[i])
}

func newTestSession(t *testing.T, gw *scriptedGateway, st store.Store) *Session {
	t.Helper()
	gw.t = t
	ids := 0
	return New(Config{SystemPrompt: "sys"}, gw, st, withThreadIDs(func() string {
		ids++
		return "thread-" + string(rune('0'+ids))
	}))
}

func loadTasks(t *testing.T, st store.Store) []models.Task {
	t.Helper()
	tasks, err := store.LoadCollection[models.Task](context.Background(), st, models.KindTasks)
	require.NoError(t, err)
	return tasks
}

const (
	incompleteReply = `{"instructions": {"status": "incomplete", "followup": "When is it due?"}}`
	completeReply   = `{
		"instructions": {"status": "complete", "followup": "Saved.", "affected_entities": ["tasks"]},
		"data": {"tasks": [{"task_id": "t1", "description": "Write report", "due_date": "friday"}]}
	}`
)

func TestSessionFlushScenario(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	gw := &scriptedGateway{replies: []string{incompleteReply, completeReply}}
	s := newTestSession(t, gw, st)

	assert.Equal(t, Idle, s.State())

	round, err := s.Submit(ctx, "add task: write report")
	require.NoError(t, err)
	assert.False(t, round.Flushed)
	assert.Equal(t, "When is it due?", round.Response.Followup)
	assert.Equal(t, Active, s.State())
	assert.Equal(t, 1, s.Thread())
	assert.Equal(t, "thread-1", s.ThreadID())
	assert.Len(t, s.History(), 2)
	assert.Empty(t, loadTasks(t, st))

	round, err = s.Submit(ctx, "done, it is due friday")
	require.NoError(t, err)
	assert.True(t, round.Flushed)
	require.Len(t, round.Reports, 1)
	assert.Equal(t, models.KindTasks, round.Reports[0].Kind)
	assert.Equal(t, []string{"t1"}, round.Reports[0].InsertedIDs())
	assert.Empty(t, round.Reports[0].UpdatedIDs())

	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.History())
	assert.Equal(t, 0, s.Thread())
	assert.Empty(t, s.ThreadID())

	tasks := loadTasks(t, st)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].TaskID)

	// The second call saw the whole thread.
	require.Len(t, gw.requests, 2)
	assert.Equal(t, "sys", gw.requests[1].SystemPrompt)
	assert.Len(t, gw.requests[1].History, 3)
	assert.Equal(t, models.RoleAssistant, gw.requests[1].History[1].Role)
}

func TestSessionNextThreadGetsNewID(t *testing.T) {
	ctx := context.Background()
	gw := &scriptedGateway{replies: []string{completeReply, incompleteReply}}
	s := newTestSession(t, gw, store.NewMemoryStore())

	_, err := s.Submit(ctx, "add t1")
	require.NoError(t, err)
	assert.Empty(t, s.ThreadID())

	_, err = s.Submit(ctx, "something else")
	require.NoError(t, err)
	assert.Equal(t, "thread-2", s.ThreadID())
}

func TestSessionSnapshotIsFreshEachRound(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	gw := &scriptedGateway{replies: []string{incompleteReply, incompleteReply}}
	s := newTestSession(t, gw, st)

	_, err := s.Submit(ctx, "first")
	require.NoError(t, err)
	assert.Empty(t, gw.requests[0].Snapshot.People)

	require.NoError(t, store.SaveCollection(ctx, st, models.KindPeople, []models.Person{{PersonID: "ana", Name: "Ana"}}))

	_, err = s.Submit(ctx, "second")
	require.NoError(t, err)
	require.Len(t, gw.requests[1].Snapshot.People, 1)
	assert.Equal(t, "ana", gw.requests[1].Snapshot.People[0].PersonID)
}

func TestSessionGatewayFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("first message restores idle", func(t *testing.T) {
		gw := &scriptedGateway{errs: []error{errors.New("connection refused")}}
		s := newTestSession(t, gw, store.NewMemoryStore())

		round, err := s.Submit(ctx, "hello")
		assert.Nil(t, round)

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, Idle, s.State())

		history := s.History()
		require.Len(t, history, 1)
		assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "hello"}, history[0])
	})

	t.Run("mid-thread stays active and retries with context", func(t *testing.T) {
		gw := &scriptedGateway{
			replies: []string{incompleteReply, "", incompleteReply},
			errs:    []error{nil, llm.ErrMalformedResponse},
		}
		s := newTestSession(t, gw, store.NewMemoryStore())

		_, err := s.Submit(ctx, "one")
		require.NoError(t, err)

		_, err = s.Submit(ctx, "two")
		require.ErrorIs(t, err, llm.ErrMalformedResponse)
		assert.Equal(t, Active, s.State())
		assert.Len(t, s.History(), 3)

		_, err = s.Submit(ctx, "three")
		require.NoError(t, err)
		assert.Len(t, gw.requests[2].History, 4)
		assert.Equal(t, "thread-1", s.ThreadID())
	})
}

func TestSessionPartialFlushFailure(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, store.SaveCollection(ctx, st, models.KindTasks, []models.Task{{TaskID: "t0", Description: "existing"}}))

	reply := `{
		"instructions": {"status": "complete", "affected_entities": ["people", "tasks"]},
		"data": {
			"people": [{"person_id": "ana", "name": "Ana"}],
			"tasks": [{"description": "no id here"}]
		}
	}`
	gw := &scriptedGateway{replies: []string{reply}}
	s := newTestSession(t, gw, st)

	round, err := s.Submit(ctx, "Ana owns something")
	require.Error(t, err)

	var flushErr *FlushError
	require.ErrorAs(t, err, &flushErr)
	assert.Equal(t, []models.Kind{models.KindPeople}, flushErr.Written)
	assert.Equal(t, []models.Kind{models.KindTasks}, flushErr.FailedKinds())

	var inputErr *reconcile.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.ErrorIs(t, err, models.ErrMissingID)

	require.NotNil(t, round)
	assert.False(t, round.Flushed)
	require.Len(t, round.Reports, 1)
	assert.Equal(t, []string{"ana"}, round.Reports[0].InsertedIDs())

	people, err := store.LoadCollection[models.Person](ctx, st, models.KindPeople)
	require.NoError(t, err)
	require.Len(t, people, 1)

	tasks := loadTasks(t, st)
	assert.Equal(t, []models.Task{{TaskID: "t0", Description: "existing"}}, tasks)

	assert.Equal(t, Active, s.State())
	assert.Len(t, s.History(), 2)
	assert.Equal(t, 1, s.Thread())
}

func TestSessionFlushFailureOmitsEmptyCollections(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reply := `{
		"instructions": {"status": "complete", "affected_entities": ["people", "tasks"]},
		"data": {"tasks": [{"description": "no id here"}]}
	}`
	s := newTestSession(t, &scriptedGateway{replies: []string{reply}}, st)

	_, err := s.Submit(ctx, "add a task")

	var flushErr *FlushError
	require.ErrorAs(t, err, &flushErr)
	assert.Empty(t, flushErr.Written, "people had no records, so nothing was written")
	assert.Equal(t, []models.Kind{models.KindTasks}, flushErr.FailedKinds())
	assert.NotContains(t, flushErr.Error(), "(written:")

	people, err := st.Load(ctx, models.KindPeople)
	require.NoError(t, err)
	assert.Empty(t, people)
}

func TestSessionAffectedFiltersBatches(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reply := `{
		"instructions": {"status": "complete", "affected_entities": ["topics"]},
		"data": {
			"tasks": [{"task_id": "t1"}],
			"topics": [{"topic_id": "q3", "name": "Q3 planning"}]
		}
	}`
	s := newTestSession(t, &scriptedGateway{replies: []string{reply}}, st)

	round, err := s.Submit(ctx, "note about Q3")
	require.NoError(t, err)
	require.Len(t, round.Reports, 1)
	assert.Equal(t, models.KindTopics, round.Reports[0].Kind)
	assert.Empty(t, loadTasks(t, st))
}

func TestSessionSnapshotFailure(t *testing.T) {
	st := failingStore{err: &store.IOError{Op: "load", Kind: models.KindPeople, Err: errors.New("disk gone")}}
	gw := &scriptedGateway{}
	s := newTestSession(t, gw, st)

	_, err := s.Submit(context.Background(), "hello")
	var ioErr *store.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, gw.requests)
}

func TestSessionEmptyInput(t *testing.T) {
	gw := &scriptedGateway{}
	s := newTestSession(t, gw, store.NewMemoryStore())

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := s.Submit(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.History())
	assert.Equal(t, 0, s.Thread())
	assert.Empty(t, gw.requests)
}

func TestSessionShutdown(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	gw := &scriptedGateway{replies: []string{incompleteReply}}
	s := newTestSession(t, gw, st)

	_, err := s.Submit(ctx, "pending work")
	require.NoError(t, err)

	s.Shutdown()
	assert.Equal(t, Shutdown, s.State())

	_, err = s.Submit(ctx, "more")
	assert.ErrorIs(t, err, ErrShutdown)
	assert.Len(t, gw.requests, 1)
	assert.Empty(t, loadTasks(t, st))

	// Idempotent.
	s.Shutdown()
	assert.Equal(t, Shutdown, s.State())
}

func TestFlushErrorMessage(t *testing.T) {
	err := &FlushError{
		Written: []models.Kind{models.KindPeople},
		Failed:  []CollectionFailure{{Kind: models.KindTasks, Err: errors.New("boom")}},
	}
	assert.Equal(t, "flush failed for tasks (written: people); tasks: boom", err.Error())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "complete", Complete.String())
	assert.Equal(t, "shutdown", Shutdown.String())
}

type failingStore struct {
	err error
}

func (f failingStore) Load(context.Context, models.Kind) ([]json.RawMessage, error) {
	return nil, f.err
}

func (f failingStore) Save(context.Context, models.Kind, []json.RawMessage) error {
	return f.err
}
