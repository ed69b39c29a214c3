// Package chat implements the context-augmented conversation pipeline:
// similarity retrieval, history resolution, summarization, prompt
// composition, model invocation and turn persistence. External systems are
// consumed through the capability interfaces below so the pipeline is
// testable with in-memory fakes.
package chat

import (
	"context"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// VectorIndex answers similarity queries over past turns and accepts new
// turns for future retrieval.
type VectorIndex interface {
	Query(ctx context.Context, owner, text string, topK int) ([]models.SimilarityHit, error)
	Upsert(ctx context.Context, turn models.Turn) error
}

// TurnStore is the durable store of record for turns. FindByID returns
// (nil, nil) when no turn exists for the id.
type TurnStore interface {
	FindByID(ctx context.Context, id string) (*models.Turn, error)
	Save(ctx context.Context, turn models.Turn) error
}

// Summarizer compresses ordered history text into a bounded context blob
// relevant to the live message.
type Summarizer interface {
	Summarize(ctx context.Context, liveMessage, history string) (string, error)
}

// Model produces a response for a composed prompt. The owner identity is
// passed through for per-user scoping by the capability.
type Model interface {
	Invoke(ctx context.Context, msgs []models.PromptMessage, owner string) (string, error)
	InvokeStream(ctx context.Context, msgs []models.PromptMessage, owner string, onToken func(token string) error) (string, error)
}
