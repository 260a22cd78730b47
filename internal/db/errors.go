package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

var (
	// ErrTransactionConflict indicates a SurrealDB transaction conflict.
	// Another writer touched the same table; the save can be retried.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrUnknownTable is returned for a kind with no backing table.
	ErrUnknownTable = errors.New("unknown table")
)

// wrapQueryError tags known SurrealDB query failures with a sentinel.
// Other errors are returned unchanged.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) && strings.Contains(queryErr.Message, "Transaction conflict") {
		return fmt.Errorf("%w: %s", ErrTransactionConflict, queryErr.Message)
	}
	return err
}

// tableFor maps a kind to its table. Table names are interpolated into
// queries, so only the fixed set is accepted.
func tableFor(kind models.Kind) (string, error) {
	switch kind {
	case models.KindPeople, models.KindTasks, models.KindTopics:
		return string(kind), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTable, kind)
	}
}
