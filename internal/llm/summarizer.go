package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// summarizeSystemPrompt bounds the summary and anchors it to the live
// message. The model may still drift from the source history; the
// orchestrator treats this capability as optional for exactly that reason.
const summarizeSystemPrompt = `You compress prior conversation history into a short context brief.
Keep only facts relevant to the user's current message.
Prefer concrete details (names, preferences, decisions) over paraphrase.
Respond with the brief only, at most 200 words.`

// Summarizer compresses resolved conversation history into a bounded
// context blob using the chat model.
type Summarizer struct {
	model  *Model
	logger *slog.Logger
}

// NewSummarizer creates a summarizer on top of an existing model.
func NewSummarizer(model *Model, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{model: model, logger: logger}
}

// Summarize produces a bounded summary of history, optimized for relevance
// to liveMessage.
func (s *Summarizer) Summarize(ctx context.Context, liveMessage, history string) (string, error) {
	userPrompt := fmt.Sprintf(`Conversation history:
%s

Current user message: %s

Context brief:`, history, liveMessage)

	start := time.Now()
	summary, err := s.model.GenerateWithSystem(ctx, summarizeSystemPrompt, userPrompt)
	duration := time.Since(start)

	if err != nil {
		s.logger.Warn("summarization failed",
			"model", s.model.Model(),
			"history_len", len(history),
			"duration_ms", duration.Milliseconds(), "error", err)
		return "", fmt.Errorf("summarize history: %w", err)
	}

	s.logger.Debug("summarization complete",
		"model", s.model.Model(),
		"history_len", len(history), "summary_len", len(summary),
		"duration_ms", duration.Milliseconds())
	return summary, nil
}
