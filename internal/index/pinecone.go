// Package index provides similarity search over past turns, backed by
// Pinecone through langchaingo's vector store adapter. Index entries are
// pure references: the durable record for every indexed turn lives in
// SurrealDB, and the index is rebuildable from it.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/pinecone"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// metadataTurnID is the metadata key carrying the durable turn id.
const metadataTurnID = "turn_id"

// Config holds Pinecone connection configuration.
type Config struct {
	Host   string
	APIKey string
}

// Index is a Pinecone-backed similarity index over turns. Each owner maps
// to a Pinecone namespace, so queries never cross users.
type Index struct {
	store  pinecone.Store
	logger *slog.Logger
}

// New creates a Pinecone index using the given embedder for both documents
// and queries.
func New(cfg Config, embedder embeddings.Embedder, logger *slog.Logger) (*Index, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("pinecone host required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	store, err := pinecone.New(
		pinecone.WithHost(cfg.Host),
		pinecone.WithAPIKey(cfg.APIKey),
		pinecone.WithEmbedder(embedder),
	)
	if err != nil {
		return nil, fmt.Errorf("create pinecone store: %w", err)
	}

	return &Index{store: store, logger: logger}, nil
}

// Query returns up to topK similarity hits for an owner's message, in the
// relevance order the index defines.
func (i *Index) Query(ctx context.Context, owner, text string, topK int) ([]models.SimilarityHit, error) {
	start := time.Now()
	docs, err := i.store.SimilaritySearch(ctx, text, topK,
		vectorstores.WithNameSpace(owner),
	)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	hits := make([]models.SimilarityHit, 0, len(docs))
	for _, doc := range docs {
		id, ok := doc.Metadata[metadataTurnID].(string)
		if !ok || id == "" {
			// An entry without a turn id cannot be resolved; skip it.
			i.logger.Warn("index entry missing turn id", "owner", owner)
			continue
		}
		hits = append(hits, models.SimilarityHit{TurnID: id, Score: doc.Score})
	}

	i.logger.Debug("similarity query complete",
		"owner", owner, "top_k", topK, "hits", len(hits),
		"duration_ms", duration.Milliseconds())
	return hits, nil
}

// Upsert indexes a turn for future retrieval. Callers must only index
// turns that have already been durably saved.
func (i *Index) Upsert(ctx context.Context, turn models.Turn) error {
	doc := schema.Document{
		PageContent: turn.Prompt + "\n" + turn.Response,
		Metadata: map[string]any{
			metadataTurnID: turn.ID,
			"owner":        turn.Owner,
			"created_at":   turn.CreatedAt.Format(time.RFC3339),
		},
	}

	start := time.Now()
	_, err := i.store.AddDocuments(ctx, []schema.Document{doc},
		vectorstores.WithNameSpace(turn.Owner),
	)
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	i.logger.Debug("turn indexed",
		"owner", turn.Owner, "turn_id", turn.ID,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
