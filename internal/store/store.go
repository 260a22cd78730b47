// Package store persists the people, tasks and topics collections.
//
// A Store loads and saves whole collections: there are no partial writes
// and a collection that was never saved loads as empty.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/raphaelgruber/sidekick/internal/models"
)

var (
	// ErrLocked indicates another process holds the store.
	ErrLocked = errors.New("store is locked by another process")

	// ErrReadOnly is returned by Save on a store opened for reading.
	ErrReadOnly = errors.New("store is read-only")
)

// Store loads and replaces whole collections.
type Store interface {
	// Load returns the persisted records of a collection, or an empty
	// slice when the collection does not exist yet.
	Load(ctx context.Context, kind models.Kind) ([]json.RawMessage, error)

	// Save replaces the persisted collection with records.
	Save(ctx context.Context, kind models.Kind, records []json.RawMessage) error
}

// IOError reports a failed read or write of one collection.
type IOError struct {
	Op   string // "load" or "save"
	Kind models.Kind
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// LoadCollection loads and decodes one collection.
func LoadCollection[E models.Entity](ctx context.Context, s Store, kind models.Kind) ([]E, error) {
	records, err := s.Load(ctx, kind)
	if err != nil {
		return nil, err
	}
	entities, err := models.DecodeBatch[E](records)
	if err != nil {
		// A stored record that no longer decodes is a storage problem, not
		// bad input from the current round.
		return nil, &IOError{Op: "load", Kind: kind, Err: err}
	}
	return entities, nil
}

// SaveCollection encodes and saves one collection.
func SaveCollection[E models.Entity](ctx context.Context, s Store, kind models.Kind, entities []E) error {
	records, err := models.EncodeBatch(entities)
	if err != nil {
		return &IOError{Op: "save", Kind: kind, Err: err}
	}
	return s.Save(ctx, kind, records)
}

// LoadSnapshot reads all collections.
func LoadSnapshot(ctx context.Context, s Store) (models.Snapshot, error) {
	var snap models.Snapshot
	var err error

	if snap.People, err = LoadCollection[models.Person](ctx, s, models.KindPeople); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Tasks, err = LoadCollection[models.Task](ctx, s, models.KindTasks); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Topics, err = LoadCollection[models.Topic](ctx, s, models.KindTopics); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

// Copy duplicates every collection of src into dst.
func Copy(ctx context.Context, dst, src Store) error {
	for _, kind := range models.Kinds {
		records, err := src.Load(ctx, kind)
		if err != nil {
			return err
		}
		if err := dst.Save(ctx, kind, records); err != nil {
			return err
		}
	}
	return nil
}
