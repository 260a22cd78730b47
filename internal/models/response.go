package models

import (
	"encoding/json"
	"fmt"
)

// Status is the thread state the assistant declares for a round.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
)

// ParseStatus validates a status string from the assistant.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusIncomplete, StatusComplete:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Payload carries the entity batches of a response. Batches stay raw until
// reconciliation so each collection is validated on its own.
type Payload struct {
	People []json.RawMessage `json:"people,omitempty"`
	Tasks  []json.RawMessage `json:"tasks,omitempty"`
	Topics []json.RawMessage `json:"topics,omitempty"`
}

// Batch returns the raw records for one collection.
func (p Payload) Batch(kind Kind) []json.RawMessage {
	switch kind {
	case KindPeople:
		return p.People
	case KindTasks:
		return p.Tasks
	case KindTopics:
		return p.Topics
	default:
		return nil
	}
}

// Response is the structured reply of the assistant for one round.
type Response struct {
	Status           Status
	Followup         string
	NewPrompt        string
	AffectedEntities []Kind
	Data             Payload

	// Raw is the response as received, stored verbatim in the history.
	Raw string

	// Usage is the token accounting reported by the provider.
	Usage Usage
}

// Usage counts the tokens consumed by one assistant call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Complete reports whether the response terminates the thread.
func (r *Response) Complete() bool {
	return r.Status == StatusComplete
}

// Affected returns the collections this response touches in canonical
// order. When the assistant declared none, every kind with a non-empty
// batch counts as affected.
func (r *Response) Affected() []Kind {
	declared := make(map[Kind]bool, len(r.AffectedEntities))
	for _, k := range r.AffectedEntities {
		declared[k] = true
	}

	kinds := make([]Kind, 0, len(Kinds))
	for _, k := range Kinds {
		if len(declared) > 0 {
			if declared[k] {
				kinds = append(kinds, k)
			}
			continue
		}
		if len(r.Data.Batch(k)) > 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
