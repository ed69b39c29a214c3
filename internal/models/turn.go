// Package models defines the conversation data model shared across the service.
package models

import (
	"fmt"
	"time"
)

// Role tags a prompt message for the model.
type Role string

const (
	// RoleSystem marks context and behavior-directive messages.
	RoleSystem Role = "system"
	// RoleUser marks the live user message.
	RoleUser Role = "user"
)

// ParseRole normalizes a wire-level role string, defaulting to user.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSystem:
		return RoleSystem
	default:
		return RoleUser
	}
}

// Turn is one persisted prompt/response exchange for a user.
// The ID is assigned once at creation and never reused; a Turn is
// immutable after it has been saved.
type Turn struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// SimilarityHit references a past Turn returned by the vector index.
// The index defines the ordering of a hit set; a hit carries no
// ownership of the Turn it points to.
type SimilarityHit struct {
	TurnID string  `json:"turn_id"`
	Score  float32 `json:"score"`
}

// HistoryEntry is a resolved hit: the full turn text plus its timestamp,
// used to build the chronologically ordered context.
type HistoryEntry struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryFromTurn renders a turn into the textual form used for context.
func EntryFromTurn(t Turn) HistoryEntry {
	return HistoryEntry{
		Text: fmt.Sprintf("%s prompt: %s\nAI response: %s\nDate: %s",
			t.Owner, t.Prompt, t.Response, t.CreatedAt.Format(time.RFC3339)),
		CreatedAt: t.CreatedAt,
	}
}

// PromptMessage is a role-tagged message segment sent to the model.
// Order within a prompt is significant: the live user message is
// always last.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
