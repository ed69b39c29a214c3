package chat

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// TurnPersister commits a newly produced turn to the durable store and,
// when indexing is enabled, to the vector index. The two writes are
// sequential and not atomic: the durable save must succeed before the
// index ever sees the turn, because index entries are pure references and
// would otherwise dangle.
type TurnPersister struct {
	store    TurnStore
	index    VectorIndex
	indexing bool
	logger   *slog.Logger
}

// NewTurnPersister creates a persister. index may be nil when indexing is
// disabled.
func NewTurnPersister(store TurnStore, index VectorIndex, indexing bool, logger *slog.Logger) *TurnPersister {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnPersister{store: store, index: index, indexing: indexing, logger: logger}
}

// Persist writes the turn. A durable-store failure is fatal to persistence
// and returned wrapped in ErrPersistence. An index failure is best-effort:
// the turn stays retrievable by id but will not surface in future
// similarity search, so it is logged and absorbed.
func (p *TurnPersister) Persist(ctx context.Context, turn models.Turn) error {
	if err := p.store.Save(ctx, turn); err != nil {
		return errWrap(ErrPersistence, err)
	}

	if !p.indexing || p.index == nil {
		return nil
	}

	if err := p.index.Upsert(ctx, turn); err != nil {
		p.logger.Warn("vector indexing failed, turn remains retrievable by id only",
			"owner", turn.Owner, "stage", "persist", "turn_id", turn.ID, "error", err)
	}
	return nil
}
