package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// turnRecord is the wire shape of a turn row. The record id carries the
// externally assigned turn uuid.
type turnRecord struct {
	ID        surrealmodels.RecordID `json:"id"`
	Owner     string                 `json:"owner"`
	Prompt    string                 `json:"prompt"`
	Response  string                 `json:"response"`
	CreatedAt time.Time              `json:"created_at"`
}

func (r turnRecord) toTurn() (models.Turn, error) {
	id, ok := r.ID.ID.(string)
	if !ok {
		return models.Turn{}, fmt.Errorf("unexpected record id type: %T", r.ID.ID)
	}
	return models.Turn{
		ID:        id,
		Owner:     r.Owner,
		Prompt:    r.Prompt,
		Response:  r.Response,
		CreatedAt: r.CreatedAt,
	}, nil
}

// Save writes a new turn. The id must be assigned by the caller; saving an
// id twice fails with ErrTurnAlreadyExists.
func (c *Client) Save(ctx context.Context, turn models.Turn) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("turn", $id) CONTENT {
			owner: $owner,
			prompt: $prompt,
			response: $response,
			created_at: $created_at
		}
	`, map[string]any{
		"id":         turn.ID,
		"owner":      turn.Owner,
		"prompt":     turn.Prompt,
		"response":   turn.Response,
		"created_at": turn.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("save turn: %w", wrapQueryError(err))
	}
	return nil
}

// FindByID retrieves a turn by id. Returns (nil, nil) when the turn does
// not exist.
func (c *Client) FindByID(ctx context.Context, id string) (*models.Turn, error) {
	results, err := surrealdb.Query[[]turnRecord](ctx, c.db, `
		SELECT * FROM type::record("turn", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("find turn: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}

	turn, err := (*results)[0].Result[0].toTurn()
	if err != nil {
		return nil, fmt.Errorf("find turn: %w", err)
	}
	return &turn, nil
}

// ListRecent returns up to limit turns for an owner, newest first.
func (c *Client) ListRecent(ctx context.Context, owner string, limit int) ([]models.Turn, error) {
	if limit <= 0 {
		limit = 20
	}

	results, err := surrealdb.Query[[]turnRecord](ctx, c.db, `
		SELECT * FROM turn
		WHERE owner = $owner
		ORDER BY created_at DESC
		LIMIT $limit
	`, map[string]any{"owner": owner, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Turn{}, nil
	}

	records := (*results)[0].Result
	turns := make([]models.Turn, 0, len(records))
	for _, rec := range records {
		turn, err := rec.toTurn()
		if err != nil {
			return nil, fmt.Errorf("list turns: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// CountByOwner returns the number of persisted turns for an owner.
func (c *Client) CountByOwner(ctx context.Context, owner string) (int, error) {
	type countRow struct {
		Count int `json:"count"`
	}

	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() AS count FROM turn WHERE owner = $owner GROUP ALL
	`, map[string]any{"owner": owner})
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}
