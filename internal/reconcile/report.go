package reconcile

import "github.com/raphaelgruber/sidekick/internal/models"

// Report is the change report for one collection: what a flush inserted
// and what it overwrote. It is produced for display only.
type Report struct {
	Kind     models.Kind
	Inserted []models.Entity
	Updated  []models.Entity
}

// NewReport converts a typed merge result into a Report.
func NewReport[E models.Entity](res Result[E]) Report {
	var zero E
	return Report{
		Kind:     zero.Kind(),
		Inserted: toEntities(res.Inserted),
		Updated:  toEntities(res.Updated),
	}
}

// Empty reports whether nothing changed.
func (r Report) Empty() bool {
	return len(r.Inserted) == 0 && len(r.Updated) == 0
}

// InsertedIDs returns the ids of inserted records in order.
func (r Report) InsertedIDs() []string {
	return ids(r.Inserted)
}

// UpdatedIDs returns the ids of overwritten records in order.
func (r Report) UpdatedIDs() []string {
	return ids(r.Updated)
}

func toEntities[E models.Entity](in []E) []models.Entity {
	out := make([]models.Entity, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out
}

func ids(in []models.Entity) []string {
	out := make([]string, len(in))
	for i, e := range in {
		out[i] = e.ID()
	}
	return out
}
