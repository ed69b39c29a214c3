package chat

import (
	"strings"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// Compose assembles the ordered prompt sent to the model: retrieved
// context (when present), then the behavior directive, then the live
// message. The order is load-bearing: models weight trailing messages more
// heavily, so the live message is always last and the directive sits after
// the context so history does not dilute it. Pure function.
func Compose(contextBlob, directive string, live models.PromptMessage) []models.PromptMessage {
	msgs := make([]models.PromptMessage, 0, 3)
	if contextBlob != "" {
		msgs = append(msgs, models.PromptMessage{Role: models.RoleSystem, Content: contextBlob})
	}
	msgs = append(msgs, models.PromptMessage{Role: models.RoleSystem, Content: directive})
	msgs = append(msgs, live)
	return msgs
}

// JoinHistory concatenates resolved entries, oldest first, into the raw
// context form used when summarization is disabled or unavailable.
func JoinHistory(entries []models.HistoryEntry) string {
	if len(entries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts = append(parts, entry.Text)
	}
	return strings.Join(parts, "\n")
}
