package llm

import (
	"encoding/json"
	"fmt"

	"github.com/raphaelgruber/sidekick/internal/models"
)

// chatRole is the role of a message sent to a provider.
type chatRole string

const (
	roleSystem    chatRole = "system"
	roleUser      chatRole = "user"
	roleAssistant chatRole = "assistant"
)

type message struct {
	role    chatRole
	content string
}

// contextPrefix introduces the snapshot message.
const contextPrefix = "Current context: "

// buildMessages lays out a request as the provider sees it: the system
// prompt, the current records, then the dialogue so far.
func buildMessages(req Request) ([]message, error) {
	snapshot, err := json.Marshal(req.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	msgs := make([]message, 0, len(req.History)+2)
	msgs = append(msgs,
		message{role: roleSystem, content: req.SystemPrompt},
		message{role: roleUser, content: contextPrefix + string(snapshot)},
	)
	for _, turn := range req.History {
		role := roleUser
		if turn.Role == models.RoleAssistant {
			role = roleAssistant
		}
		msgs = append(msgs, message{role: role, content: turn.Content})
	}
	return msgs, nil
}
