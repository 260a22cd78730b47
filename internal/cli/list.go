package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:   "list <people|tasks|topics>",
	Short: "List a collection",
	Long: `List the records of one collection.

Examples:
  sidekick list people
  sidekick list tasks -v`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"people", "tasks", "topics"},
	RunE:      runList,
}

func runList(cmd *cobra.Command, args []string) error {
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return err
	}

	e, err := openEnv(cmd, readOnly)
	if err != nil {
		return err
	}
	defer e.Close()

	entities, err := loadEntities(cmd.Context(), e.store, kind)
	if err != nil {
		return fmt.Errorf("list %s: %w", kind, err)
	}

	r := newRenderer(cmd.OutOrStdout())
	if !verbose {
		r.entities(kind, entities)
		return nil
	}

	// Verbose output shows every field.
	maps, err := entityMaps(entities)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(maps)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// loadEntities reads one collection as Entity values.
func loadEntities(ctx context.Context, st store.Store, kind models.Kind) ([]models.Entity, error) {
	switch kind {
	case models.KindPeople:
		return asEntities(store.LoadCollection[models.Person](ctx, st, kind))
	case models.KindTasks:
		return asEntities(store.LoadCollection[models.Task](ctx, st, kind))
	case models.KindTopics:
		return asEntities(store.LoadCollection[models.Topic](ctx, st, kind))
	default:
		return nil, fmt.Errorf("unknown collection %q", kind)
	}
}

func asEntities[E models.Entity](in []E, err error) ([]models.Entity, error) {
	if err != nil {
		return nil, err
	}
	out := make([]models.Entity, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out, nil
}
