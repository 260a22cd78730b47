package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/reconcile"
	"github.com/raphaelgruber/sidekick/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemoryStore()
	people := []models.Person{
		{PersonID: "ana", Name: "Ana Lima", TaskIDs: []string{"t1"}, Notes: "Prefers email."},
	}
	tasks := []models.Task{
		{TaskID: "t1", Description: "Write report", DueDate: "2025-03-01", Stakeholders: []string{"ana"}},
		{TaskID: "t2", Description: "yes"},
	}
	require.NoError(t, store.SaveCollection(ctx, src, models.KindPeople, people))
	require.NoError(t, store.SaveCollection(ctx, src, models.KindTasks, tasks))

	dir := t.TempDir()
	_, err := exportCollections(ctx, src, dir)
	require.NoError(t, err)

	batches, err := readExport(dir)
	require.NoError(t, err)

	dst := store.NewMemoryStore()
	reports, err := importBatches(ctx, reconcile.NewReconciler(dst, slog.Default(), nil), batches)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, []string{"ana"}, reports[0].InsertedIDs())

	gotPeople, err := store.LoadCollection[models.Person](ctx, dst, models.KindPeople)
	require.NoError(t, err)
	assert.Equal(t, people, gotPeople)

	gotTasks, err := store.LoadCollection[models.Task](ctx, dst, models.KindTasks)
	require.NoError(t, err)
	assert.Equal(t, tasks, gotTasks)
}

func TestReadExportUsesTitleAndBody(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeDoc(t, dir, "people", "bo.md", "---\nperson_id: bo\nkind: people\n---\n\n# Bo Chen\n\nMet at the offsite.\n")
	writeDoc(t, dir, "tasks", "t9.md", "---\ntask_id: t9\ndescription: Ship it\nnotes: stale\n---\n\n# Renamed in the heading\n\nBlocked on review.\n")
	writeDoc(t, dir, "topics", "q4.md", "---\ntopic_id: q4\n---\n\n# q4\n")

	batches, err := readExport(dir)
	require.NoError(t, err)

	st := store.NewMemoryStore()
	_, err = importBatches(ctx, reconcile.NewReconciler(st, slog.Default(), nil), batches)
	require.NoError(t, err)

	people, err := store.LoadCollection[models.Person](ctx, st, models.KindPeople)
	require.NoError(t, err)
	assert.Equal(t, []models.Person{{PersonID: "bo", Name: "Bo Chen", Notes: "Met at the offsite."}}, people)

	tasks, err := store.LoadCollection[models.Task](ctx, st, models.KindTasks)
	require.NoError(t, err)
	assert.Equal(t, []models.Task{{TaskID: "t9", Description: "Ship it", Notes: "Blocked on review."}}, tasks)

	topics, err := store.LoadCollection[models.Topic](ctx, st, models.KindTopics)
	require.NoError(t, err)
	assert.Equal(t, []models.Topic{{TopicID: "q4"}}, topics, "a title equal to the id is not a name")
}

func TestImportIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeDoc(t, dir, "people", "ana.md", "---\nperson_id: ana\n---\n")
	writeDoc(t, dir, "tasks", "bad.md", "---\ndescription: no id\n---\n")

	batches, err := readExport(dir)
	require.NoError(t, err)

	st := store.NewMemoryStore()
	reports, err := importBatches(ctx, reconcile.NewReconciler(st, slog.Default(), nil), batches)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingID)
	require.Len(t, reports, 1)
	assert.Equal(t, models.KindPeople, reports[0].Kind)
}

func TestReadExportErrors(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		_, err := readExport(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		dir := t.TempDir()
		writeDoc(t, dir, "topics", "x.md", "---\nkind: tasks\ntask_id: x\n---\n")
		_, err := readExport(dir)
		assert.ErrorContains(t, err, "tasks")
	})

	t.Run("no frontmatter", func(t *testing.T) {
		dir := t.TempDir()
		writeDoc(t, dir, "people", "x.md", "# Just notes\n")
		_, err := readExport(dir)
		assert.Error(t, err)
	})
}

func writeDoc(t *testing.T, dir, kind, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, kind), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, kind, name), []byte(content), 0o644))
}
