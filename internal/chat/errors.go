package chat

import (
	"errors"
	"fmt"
)

// Failure kinds for the conversation pipeline. Check with errors.Is.
//
// Only ErrModelInvocation propagates out of the orchestrator as a request
// failure. The others are absorbed at their stage boundary: retrieval and
// resolution failures degrade to a smaller or empty history, summarization
// failures fall back to the raw concatenated history, and persistence
// failures are logged after the response has already been produced.
var (
	// ErrRetrieval indicates the vector index was unreachable or errored.
	ErrRetrieval = errors.New("similarity retrieval failed")

	// ErrResolution indicates a single turn lookup failed during history
	// resolution.
	ErrResolution = errors.New("history resolution failed")

	// ErrSummarization indicates the summarization capability failed.
	ErrSummarization = errors.New("history summarization failed")

	// ErrModelInvocation indicates the model capability failed; no
	// response text exists for the request.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrPersistence indicates the durable save of a turn failed. The
	// turn is lost but the computed response is still delivered.
	ErrPersistence = errors.New("turn persistence failed")
)

// errWrap tags a cause with its pipeline failure kind so both match
// errors.Is.
func errWrap(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
