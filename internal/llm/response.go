package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raphaelgruber/sidekick/internal/models"
)

// wireResponse is the JSON object the assistant is instructed to emit.
type wireResponse struct {
	Instructions *struct {
		Status           string   `json:"status"`
		Followup         string   `json:"followup"`
		NewPrompt        string   `json:"new_prompt"`
		AffectedEntities []string `json:"affected_entities"`
	} `json:"instructions"`

	Data struct {
		People []json.RawMessage `json:"people"`
		Tasks  []json.RawMessage `json:"tasks"`
		Topics []json.RawMessage `json:"topics"`

		// Older prompts call topics "contexts" and key them by context_id.
		Contexts []json.RawMessage `json:"contexts"`
	} `json:"data"`
}

// ParseResponse decodes an assistant reply into a Response.
// Only the envelope is validated here; entity batches are checked when
// they are reconciled.
func ParseResponse(text string) (*models.Response, error) {
	body := extractJSON(text)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if wire.Instructions == nil {
		return nil, fmt.Errorf("%w: missing instructions", ErrMalformedResponse)
	}

	status, err := models.ParseStatus(strings.ToLower(strings.TrimSpace(wire.Instructions.Status)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	affected := make([]models.Kind, 0, len(wire.Instructions.AffectedEntities))
	for _, name := range wire.Instructions.AffectedEntities {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "contexts" || name == "context" {
			name = string(models.KindTopics)
		}
		kind, err := models.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: affected_entities: %v", ErrMalformedResponse, err)
		}
		affected = append(affected, kind)
	}

	topics := wire.Data.Topics
	for _, r := range wire.Data.Contexts {
		topics = append(topics, renameLegacyTopicID(r))
	}

	return &models.Response{
		Status:           status,
		Followup:         wire.Instructions.Followup,
		NewPrompt:        wire.Instructions.NewPrompt,
		AffectedEntities: affected,
		Data: models.Payload{
			People: wire.Data.People,
			Tasks:  wire.Data.Tasks,
			Topics: topics,
		},
		Raw: body,
	}, nil
}

// extractJSON strips markdown fences and any prose around the object.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// renameLegacyTopicID moves context_id to topic_id. Records that are not
// objects, or that already carry topic_id, pass through untouched.
func renameLegacyTopicID(r json.RawMessage) json.RawMessage {
	if !bytes.Contains(r, []byte(`"context_id"`)) {
		return r
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r, &fields); err != nil {
		return r
	}
	if _, ok := fields["topic_id"]; ok {
		return r
	}
	fields["topic_id"] = fields["context_id"]
	delete(fields, "context_id")

	out, err := json.Marshal(fields)
	if err != nil {
		return r
	}
	return out
}
