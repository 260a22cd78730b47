package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raphaelgruber/sidekick/internal/models"
)

var (
	// ErrEmptyInput is returned for blank user text. It does not count as a turn.
	ErrEmptyInput = errors.New("empty input")

	// ErrShutdown is returned by Submit once the session has been shut down.
	ErrShutdown = errors.New("session is shut down")
)

// GatewayError reports a round the assistant could not answer.
// The user turn stays in the history so the next submit retries with it.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("assistant unavailable: %v", e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// CollectionFailure is one collection that could not be flushed.
type CollectionFailure struct {
	Kind models.Kind
	Err  error
}

// FlushError reports a completed thread whose records were only partly
// persisted. Written collections are not rolled back.
type FlushError struct {
	Written []models.Kind
	Failed  []CollectionFailure
}

func (e *FlushError) Error() string {
	var b strings.Builder
	b.WriteString("flush failed for ")
	b.WriteString(joinKinds(e.FailedKinds()))
	if len(e.Written) > 0 {
		b.WriteString(" (written: ")
		b.WriteString(joinKinds(e.Written))
		b.WriteString(")")
	}
	for _, f := range e.Failed {
		fmt.Fprintf(&b, "; %s: %v", f.Kind, f.Err)
	}
	return b.String()
}

// Unwrap exposes every collection's failure to errors.Is and errors.As.
func (e *FlushError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f.Err
	}
	return errs
}

// FailedKinds returns the collections that were not written.
func (e *FlushError) FailedKinds() []models.Kind {
	kinds := make([]models.Kind, len(e.Failed))
	for i, f := range e.Failed {
		kinds[i] = f.Kind
	}
	return kinds
}

func joinKinds(kinds []models.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
