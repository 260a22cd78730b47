package models

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in the running dialogue history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
