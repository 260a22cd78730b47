// Package reconcile merges incoming entity batches into existing
// collections and reports which records were inserted and which replaced.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raphaelgruber/sidekick/internal/models"
)

// InputError rejects a batch that cannot be merged. Nothing from the
// batch is applied when it is returned.
type InputError struct {
	Kind models.Kind
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("reconcile %s: %v", e.Kind, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one merge.
type Result[E models.Entity] struct {
	Merged   []E
	Inserted []E
	Updated  []E
}

// Merge applies incoming on top of existing by id.
//
// An incoming record whose id is unknown is inserted; a known id replaces
// the previous record wholesale, fields omitted by the newer record
// included. Merged keeps the order of existing, with replaced records in
// their original slot, followed by inserts in incoming order. Inserted and
// Updated follow processing order.
func Merge[E models.Entity](existing, incoming []E) (Result[E], error) {
	var zero E
	kind := zero.Kind()

	for i, e := range incoming {
		if strings.TrimSpace(e.ID()) == "" {
			return Result[E]{}, &InputError{
				Kind: kind,
				Err:  &models.RecordError{Kind: kind, Index: i, Err: fmt.Errorf("%w: %s", models.ErrMissingID, kind.IDField())},
			}
		}
	}

	index := make(map[string]int, len(existing)+len(incoming))
	merged := make([]E, 0, len(existing)+len(incoming))
	for _, e := range existing {
		if pos, ok := index[e.ID()]; ok {
			// Collapse duplicates that predate the uniqueness invariant.
			merged[pos] = e
			continue
		}
		index[e.ID()] = len(merged)
		merged = append(merged, e)
	}

	res := Result[E]{
		Inserted: make([]E, 0),
		Updated:  make([]E, 0),
	}
	for _, e := range incoming {
		if pos, ok := index[e.ID()]; ok {
			merged[pos] = e
			res.Updated = append(res.Updated, e)
			continue
		}
		index[e.ID()] = len(merged)
		merged = append(merged, e)
		res.Inserted = append(res.Inserted, e)
	}
	res.Merged = merged
	return res, nil
}

// IsInputError reports whether err rejects a batch's content rather than
// failing on storage.
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}
