package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/parser"
	"github.com/raphaelgruber/sidekick/internal/reconcile"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Merge Markdown records back into the collections",
	Long: `Read a directory written by "sidekick export" and merge its records
into the collections. Records are matched by id: known ids are replaced,
new ids are appended. The text below the title becomes the record's
notes, and the title fills in a missing name or description.

Examples:
  sidekick import ./notes
  sidekick import ./notes --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	batches, err := readExport(args[0])
	if err != nil {
		return err
	}

	e, err := openEnv(cmd, readWrite)
	if err != nil {
		return err
	}
	defer e.Close()

	r := newRenderer(cmd.OutOrStdout())
	reports, err := importBatches(cmd.Context(), reconcile.NewReconciler(e.store, e.logger, e.collector), batches)
	r.reports(reports)
	return err
}

// importBatches applies each collection independently. A failing
// collection does not stop the others.
func importBatches(ctx context.Context, rec *reconcile.Reconciler, batches map[models.Kind][]json.RawMessage) ([]reconcile.Report, error) {
	var (
		reports []reconcile.Report
		errs    []error
	)
	for _, kind := range models.Kinds {
		batch := batches[kind]
		if len(batch) == 0 {
			continue
		}
		report, err := rec.Apply(ctx, kind, batch)
		if err != nil {
			errs = append(errs, fmt.Errorf("import %s: %w", kind, err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// readExport collects the records under <dir>/<kind>/*.md.
func readExport(dir string) (map[models.Kind][]json.RawMessage, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	batches := make(map[models.Kind][]json.RawMessage, len(models.Kinds))
	for _, kind := range models.Kinds {
		paths, err := filepath.Glob(filepath.Join(dir, string(kind), "*.md"))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			raw, err := readRecord(path, kind)
			if err != nil {
				return nil, err
			}
			batches[kind] = append(batches[kind], raw)
		}
	}
	return batches, nil
}

func readRecord(path string, kind models.Kind) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := parser.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if k := doc.String("kind"); k != "" && k != string(kind) {
		return nil, fmt.Errorf("%s: record of kind %q in %s directory", path, k, kind)
	}

	// The title and body of an exported file carry the label and notes.
	fields := doc.Frontmatter
	if text := doc.Text(); text != "" {
		fields["notes"] = text
	}
	label := labelField(kind)
	if _, ok := fields[label]; !ok && doc.Title != "" && doc.Title != doc.String(kind.IDField()) {
		fields[label] = doc.Title
	}
	return doc.Record("kind")
}

// labelField names the field an entity's Label is read from.
func labelField(kind models.Kind) string {
	if kind == models.KindTasks {
		return "description"
	}
	return "name"
}
