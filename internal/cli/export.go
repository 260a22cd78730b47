package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio/v2"
	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Export records to Markdown files",
	Long: `Export every record to a Markdown file with YAML frontmatter, one
directory per collection.

Examples:
  sidekick export ./notes`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd, readOnly)
	if err != nil {
		return err
	}
	defer e.Close()

	dir := args[0]
	n, err := exportCollections(cmd.Context(), e.store, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", n, dir)
	return nil
}

// exportCollections writes <dir>/<kind>/<slug>.md for every record and
// returns how many files it wrote.
func exportCollections(ctx context.Context, st store.Store, dir string) (int, error) {
	written := 0
	for _, kind := range models.Kinds {
		entities, err := loadEntities(ctx, st, kind)
		if err != nil {
			return written, fmt.Errorf("load %s: %w", kind, err)
		}
		if len(entities) == 0 {
			continue
		}

		kindDir := filepath.Join(dir, string(kind))
		if err := os.MkdirAll(kindDir, 0o755); err != nil {
			return written, fmt.Errorf("create %s: %w", kindDir, err)
		}

		used := make(map[string]bool, len(entities))
		for i, e := range entities {
			doc, err := markdown(e)
			if err != nil {
				return written, err
			}
			name := uniqueName(exportName(e, i), used)
			if err := renameio.WriteFile(filepath.Join(kindDir, name+".md"), doc, 0o644); err != nil {
				return written, fmt.Errorf("write %s/%s: %w", kind, name, err)
			}
			written++
		}
	}
	return written, nil
}

func exportName(e models.Entity, index int) string {
	if slug := models.Slugify(e.ID()); slug != "" {
		return slug
	}
	return string(e.Kind()) + "-" + strconv.Itoa(index+1)
}

// uniqueName suffixes name until it is unused. Distinct ids can share a slug.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = name + "-" + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}

// markdown renders an entity as frontmatter plus a short body.
func markdown(e models.Entity) ([]byte, error) {
	fields, err := entityMap(e)
	if err != nil {
		return nil, err
	}
	notes, _ := fields["notes"].(string)
	delete(fields, "notes")
	fields["kind"] = string(e.Kind())

	front, err := yaml.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode frontmatter for %s: %w", e.ID(), err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(front)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n", e.Label())
	if notes != "" {
		b.WriteString("\n")
		b.WriteString(notes)
		b.WriteString("\n")
	}
	return b.Bytes(), nil
}

// entityMap converts an entity to its JSON field map so YAML output uses
// the same field names as the stored records.
func entityMap(e models.Entity) (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.ID(), err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.ID(), err)
	}
	return fields, nil
}

func entityMaps(entities []models.Entity) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		m, err := entityMap(e)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
