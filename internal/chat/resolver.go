package chat

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// HistoryResolver expands similarity hits into full history entries from
// the durable store.
type HistoryResolver struct {
	store  TurnStore
	logger *slog.Logger
}

// NewHistoryResolver creates a resolver over the given store.
func NewHistoryResolver(store TurnStore, logger *slog.Logger) *HistoryResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryResolver{store: store, logger: logger}
}

// Resolve looks up every hit concurrently and returns the surviving
// entries ordered by ascending creation time; chronology, not relevance
// rank, governs presentation order. A failed or empty lookup is dropped
// and logged, never raised. Entries with identical timestamps keep their
// input order, so the result is deterministic for a given hit set.
func (r *HistoryResolver) Resolve(ctx context.Context, hits []models.SimilarityHit) []models.HistoryEntry {
	if len(hits) == 0 {
		return nil
	}

	// Indexed by input position so ties sort stably below.
	resolved := make([]*models.HistoryEntry, len(hits))

	var wg sync.WaitGroup
	for i, hit := range hits {
		wg.Add(1)
		go func(i int, hit models.SimilarityHit) {
			defer wg.Done()

			turn, err := r.store.FindByID(ctx, hit.TurnID)
			if err != nil {
				r.logger.Warn("history lookup failed, dropping entry",
					"stage", "resolve", "turn_id", hit.TurnID,
					"error", errWrap(ErrResolution, err))
				return
			}
			if turn == nil {
				r.logger.Warn("referenced turn no longer exists, dropping entry",
					"stage", "resolve", "turn_id", hit.TurnID)
				return
			}

			entry := models.EntryFromTurn(*turn)
			resolved[i] = &entry
		}(i, hit)
	}
	wg.Wait()

	entries := make([]models.HistoryEntry, 0, len(hits))
	for _, entry := range resolved {
		if entry != nil {
			entries = append(entries, *entry)
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].CreatedAt.Before(entries[b].CreatedAt)
	})

	r.logger.Debug("history resolved",
		"hits", len(hits), "entries", len(entries))
	return entries
}
