package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/raphaelgruber/sidekick/internal/store"
	"github.com/surrealdb/surrealdb.go"
)

// row is one stored record. The record is kept as JSON text so it reads
// back byte-for-byte as the reconciler wrote it.
type row struct {
	Position int    `json:"position"`
	Record   string `json:"record"`
}

// CollectionStore implements store.Store on SurrealDB tables.
type CollectionStore struct {
	client *Client
	logger *slog.Logger
}

var _ store.Store = (*CollectionStore)(nil)

// NewCollectionStore wraps a connected client.
func NewCollectionStore(client *Client, logger *slog.Logger) *CollectionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollectionStore{client: client, logger: logger}
}

// Load implements store.Store.
func (s *CollectionStore) Load(ctx context.Context, kind models.Kind) ([]json.RawMessage, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, &store.IOError{Op: "load", Kind: kind, Err: err}
	}

	results, err := surrealdb.Query[[]row](ctx, s.client.db,
		fmt.Sprintf("SELECT position, record FROM %s ORDER BY position ASC", table), nil)
	if err != nil {
		return nil, &store.IOError{Op: "load", Kind: kind, Err: wrapQueryError(err)}
	}
	if results == nil || len(*results) == 0 {
		return []json.RawMessage{}, nil
	}
	return rowsToRecords((*results)[0].Result), nil
}

// Save implements store.Store. The table is emptied and refilled in one
// transaction, so readers never see a partial collection.
func (s *CollectionStore) Save(ctx context.Context, kind models.Kind, records []json.RawMessage) error {
	table, err := tableFor(kind)
	if err != nil {
		return &store.IOError{Op: "save", Kind: kind, Err: err}
	}

	rows := recordsToRows(records)
	sql := fmt.Sprintf("BEGIN TRANSACTION; DELETE %s;", table)
	if len(rows) > 0 {
		sql += fmt.Sprintf(" INSERT INTO %s $rows;", table)
	}
	sql += " COMMIT TRANSACTION;"

	if _, err := surrealdb.Query[any](ctx, s.client.db, sql, map[string]any{"rows": rows}); err != nil {
		return &store.IOError{Op: "save", Kind: kind, Err: wrapQueryError(err)}
	}

	s.logger.Debug("saved collection", "kind", kind, "table", table, "records", len(rows))
	return nil
}

func recordsToRows(records []json.RawMessage) []row {
	rows := make([]row, len(records))
	for i, r := range records {
		rows[i] = row{Position: i, Record: string(r)}
	}
	return rows
}

func rowsToRecords(rows []row) []json.RawMessage {
	out := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		out[i] = json.RawMessage(r.Record)
	}
	return out
}
