package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingID indicates a record without its collection's id field.
	ErrMissingID = errors.New("missing id field")

	// ErrInvalidRecord indicates a record that does not match its variant's shape.
	ErrInvalidRecord = errors.New("invalid record")
)

// RecordError locates a bad record inside a batch.
type RecordError struct {
	Kind  Kind
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s[%d]: %v", e.Kind, e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// DecodeBatch strictly decodes raw records into typed entities.
// Unknown fields, non-object records and blank ids are rejected; the first
// bad record fails the whole batch.
func DecodeBatch[E Entity](raw []json.RawMessage) ([]E, error) {
	var zero E
	kind := zero.Kind()

	out := make([]E, 0, len(raw))
	for i, r := range raw {
		e, err := decodeRecord[E](r)
		if err != nil {
			return nil, &RecordError{Kind: kind, Index: i, Err: err}
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeRecord[E Entity](raw json.RawMessage) (E, error) {
	var e E
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return e, fmt.Errorf("%w: expected a JSON object", ErrInvalidRecord)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return e, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if strings.TrimSpace(e.ID()) == "" {
		return e, fmt.Errorf("%w: %s", ErrMissingID, e.Kind().IDField())
	}
	return e, nil
}

// EncodeBatch marshals typed entities back into raw records.
func EncodeBatch[E Entity](entities []E) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(entities))
	for _, e := range entities {
		b, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode %s %q: %w", e.Kind(), e.ID(), err)
		}
		out = append(out, b)
	}
	return out, nil
}
