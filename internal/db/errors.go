package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for turn store operations. Check with errors.Is.
var (
	// ErrTurnAlreadyExists indicates a turn with the same id was already
	// saved. Turn ids are never reused, so this points at a caller bug or
	// a retried request.
	ErrTurnAlreadyExists = errors.New("turn already exists")

	// ErrTransactionConflict indicates concurrent writes touched the same
	// records. Callers should retry or drop the operation.
	ErrTransactionConflict = errors.New("transaction conflict")
)

// wrapQueryError maps known SurrealDB query errors onto the sentinels above.
// Unrecognized errors pass through unchanged.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "already exists") {
			return fmt.Errorf("%w: %s", ErrTurnAlreadyExists, msg)
		}
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		}
	}

	return err
}
