// Package models defines the records sidekick keeps: people, tasks and topics,
// plus the dialogue turns and assistant responses that produce them.
package models

import "fmt"

// Kind names one of the three entity collections.
// Its string form is both the collection name and the payload key.
type Kind string

const (
	KindPeople Kind = "people"
	KindTasks  Kind = "tasks"
	KindTopics Kind = "topics"
)

// Kinds lists every collection in canonical order.
var Kinds = []Kind{KindPeople, KindTasks, KindTopics}

// ParseKind maps a collection name to its Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPeople, KindTasks, KindTopics:
		return Kind(s), nil
	case "person":
		return KindPeople, nil
	case "task":
		return KindTasks, nil
	case "topic":
		return KindTopics, nil
	default:
		return "", fmt.Errorf("unknown collection %q (want people, tasks or topics)", s)
	}
}

// IDField returns the JSON field that carries the identifier for this kind.
func (k Kind) IDField() string {
	switch k {
	case KindPeople:
		return "person_id"
	case KindTasks:
		return "task_id"
	case KindTopics:
		return "topic_id"
	default:
		return ""
	}
}

// Entity is implemented by every record variant.
type Entity interface {
	Kind() Kind
	ID() string
	Label() string
}

// Person is someone the user works with or mentions.
type Person struct {
	PersonID     string   `json:"person_id"`
	Name         string   `json:"name,omitempty"`
	Role         string   `json:"role,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Relationship string   `json:"relationship,omitempty"`
	Contact      string   `json:"contact,omitempty"`
	TaskIDs      []string `json:"task_ids,omitempty"`
	TopicIDs     []string `json:"topic_ids,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

func (p Person) Kind() Kind { return KindPeople }
func (p Person) ID() string { return p.PersonID }

func (p Person) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.PersonID
}

// Task is a unit of work. Stakeholders and TopicIDs are soft references.
type Task struct {
	TaskID       string   `json:"task_id"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	DueDate      string   `json:"due_date,omitempty"`
	Stakeholders []string `json:"stakeholders,omitempty"`
	TopicIDs     []string `json:"topic_ids,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

func (t Task) Kind() Kind { return KindTasks }
func (t Task) ID() string { return t.TaskID }

func (t Task) Label() string {
	if t.Description != "" {
		return t.Description
	}
	return t.TaskID
}

// Topic is an area of knowledge or an ongoing context.
type Topic struct {
	TopicID       string   `json:"topic_id"`
	Name          string   `json:"name,omitempty"`
	Description   string   `json:"description,omitempty"`
	RelatedPeople []string `json:"related_people,omitempty"`
	RelatedTasks  []string `json:"related_tasks,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

func (t Topic) Kind() Kind { return KindTopics }
func (t Topic) ID() string { return t.TopicID }

func (t Topic) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.TopicID
}

// Snapshot is the full current contents of all collections, as handed to
// the assistant before each round.
type Snapshot struct {
	People []Person `json:"people"`
	Tasks  []Task   `json:"tasks"`
	Topics []Topic  `json:"topics"`
}

// Len returns the total number of records in the snapshot.
func (s Snapshot) Len() int {
	return len(s.People) + len(s.Tasks) + len(s.Topics)
}
