package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/converse-go/internal/models"
)

func enabledOptions() Options {
	return Options{
		Retrieval:     true,
		Summarization: false,
		Model:         true,
		TopK:          10,
		Directive:     "be helpful",
	}
}

func newTestOrchestrator(store *fakeStore, index *fakeIndex, summarizer Summarizer, model Model, opts Options) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := NewOrchestrator(index, store, summarizer, model, opts, nil, logger)
	o.newID = func() string { return "test-turn-id" }
	o.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return o
}

// Scenario: owner with no prior turns, retrieval and model enabled. The
// composed prompt is just directive + live message and exactly one turn is
// saved.
func TestRespondNoPriorTurns(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{}
	model := &fakeModel{response: "hello alice"}

	o := newTestOrchestrator(store, index, nil, model, enabledOptions())
	response, err := o.Respond(context.Background(), "alice", "hi", models.RoleUser)

	require.NoError(t, err)
	assert.Equal(t, "hello alice", response)

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	require.Len(t, prompt, 2)
	assert.Equal(t, models.PromptMessage{Role: models.RoleSystem, Content: "be helpful"}, prompt[0])
	assert.Equal(t, models.PromptMessage{Role: models.RoleUser, Content: "hi"}, prompt[1])

	assert.Equal(t, 1, store.saveCount())
	require.Len(t, index.upserted, 1)
	assert.Equal(t, "test-turn-id", index.upserted[0].ID)
}

// Scenario: one prior matching turn and summarization disabled. The
// context message carries the raw resolved history verbatim.
func TestRespondRawHistoryContext(t *testing.T) {
	store := newFakeStore()
	store.add(models.Turn{
		ID:        "prior-1",
		Owner:     "alice",
		Prompt:    "favorite color?",
		Response:  "blue",
		CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	index := &fakeIndex{hits: []models.SimilarityHit{{TurnID: "prior-1"}}}
	model := &fakeModel{response: "you said blue"}

	o := newTestOrchestrator(store, index, nil, model, enabledOptions())
	_, err := o.Respond(context.Background(), "alice", "what is my favorite color?", models.RoleUser)
	require.NoError(t, err)

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	require.Len(t, prompt, 3)
	assert.Equal(t, models.RoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "blue")
	assert.Contains(t, prompt[0].Content, "favorite color?")
	assert.Equal(t, models.RoleUser, prompt[2].Role)
}

// Scenario: the vector index errors. The request degrades to the
// history-less prompt instead of failing.
func TestRespondRetrievalFailureDegrades(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{queryErr: errors.New("index unreachable")}
	model := &fakeModel{response: "still fine"}

	o := newTestOrchestrator(store, index, nil, model, enabledOptions())
	response, err := o.Respond(context.Background(), "alice", "hi", models.RoleUser)

	require.NoError(t, err)
	assert.Equal(t, "still fine", response)
	require.Len(t, model.prompts, 1)
	assert.Len(t, model.prompts[0], 2)
	assert.Equal(t, 1, store.saveCount())
}

// Scenario: the model errors. No response exists, nothing is persisted.
func TestRespondModelFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{}
	model := &fakeModel{err: errors.New("upstream 500")}

	o := newTestOrchestrator(store, index, nil, model, enabledOptions())
	response, err := o.Respond(context.Background(), "alice", "hi", models.RoleUser)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelInvocation))
	assert.Empty(t, response)
	assert.Equal(t, 0, store.saveCount())
}

func TestRespondSummarizedContext(t *testing.T) {
	store := newFakeStore()
	store.add(models.Turn{
		ID: "prior-1", Owner: "alice",
		Prompt: "favorite color?", Response: "blue",
		CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	index := &fakeIndex{hits: []models.SimilarityHit{{TurnID: "prior-1"}}}
	summarizer := &fakeSummarizer{out: "alice likes blue"}
	model := &fakeModel{response: "ok"}

	opts := enabledOptions()
	opts.Summarization = true

	o := newTestOrchestrator(store, index, summarizer, model, opts)
	_, err := o.Respond(context.Background(), "alice", "hi", models.RoleUser)
	require.NoError(t, err)

	// The summary, not the raw history, becomes the context message.
	require.Len(t, model.prompts, 1)
	assert.Equal(t, "alice likes blue", model.prompts[0][0].Content)
	assert.Equal(t, 1, summarizer.calls)
}

func TestRespondSummarizationFailureFallsBack(t *testing.T) {
	store := newFakeStore()
	store.add(models.Turn{
		ID: "prior-1", Owner: "alice",
		Prompt: "favorite color?", Response: "blue",
		CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	index := &fakeIndex{hits: []models.SimilarityHit{{TurnID: "prior-1"}}}
	summarizer := &fakeSummarizer{err: errors.New("summarizer down")}
	model := &fakeModel{response: "ok"}

	opts := enabledOptions()
	opts.Summarization = true

	o := newTestOrchestrator(store, index, summarizer, model, opts)
	_, err := o.Respond(context.Background(), "alice", "hi", models.RoleUser)
	require.NoError(t, err)

	// Raw concatenated history, never the summarizer's output.
	assert.Contains(t, model.prompts[0][0].Content, "blue")
	assert.Contains(t, model.prompts[0][0].Content, "favorite color?")
}

func TestRespondRetrievalDisabled(t *testing.T) {
	store := newFakeStore()
	store.add(models.Turn{
		ID: "prior-1", Owner: "alice",
		Prompt: "favorite color?", Response: "blue",
		CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	index := &fakeIndex{hits: []models.SimilarityHit{{TurnID: "prior-1"}}}
	model := &fakeModel{response: "ok"}

	opts := enabledOptions()
	opts.Retrieval = false

	o := newTestOrchestrator(store, index, nil, model, opts)
	_, err := o.Respond(context.Background(), "alice", "hi", models.RoleUser)
	require.NoError(t, err)

	assert.Equal(t, 0, index.queries, "retrieval disabled, index must not be queried")
	assert.Len(t, model.prompts[0], 2, "no context message may appear")
	assert.Empty(t, index.upserted, "retrieval disabled also disables indexing")
	assert.Equal(t, 1, store.saveCount())
}

func TestRespondModelDisabledUsesPlaceholder(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{}

	opts := enabledOptions()
	opts.Model = false

	o := newTestOrchestrator(store, index, nil, nil, opts)
	response, err := o.Respond(context.Background(), "alice", "hi", models.RoleUser)

	require.NoError(t, err)
	assert.Contains(t, response, "Model invocation is disabled")
	require.Equal(t, 1, store.saveCount())
	assert.Equal(t, response, store.saved[0].Response, "placeholder is persisted like a real response")
}

func TestRespondPersistenceFailureStillDelivers(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("db down")
	index := &fakeIndex{}
	model := &fakeModel{response: "delivered anyway"}

	o := newTestOrchestrator(store, index, nil, model, enabledOptions())
	response, err := o.Respond(context.Background(), "alice", "hi", models.RoleUser)

	require.NoError(t, err)
	assert.Equal(t, "delivered anyway", response)
	assert.Empty(t, index.upserted, "no indexing after failed save")
}

func TestRespondDefaultsRole(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{}
	model := &fakeModel{response: "ok"}

	o := newTestOrchestrator(store, index, nil, model, enabledOptions())
	_, err := o.Respond(context.Background(), "alice", "hi", "")
	require.NoError(t, err)

	prompt := model.prompts[0]
	assert.Equal(t, models.RoleUser, prompt[len(prompt)-1].Role)
}

func TestRespondStreamForwardsTokensAndPersists(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{}
	model := &fakeModel{response: "streamed reply"}

	o := newTestOrchestrator(store, index, nil, model, enabledOptions())

	var tokens []string
	response, err := o.RespondStream(context.Background(), "alice", "hi", models.RoleUser, func(token string) error {
		tokens = append(tokens, token)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "streamed reply", response)
	assert.Equal(t, "streamed reply", strings.Join(tokens, ""))
	require.Equal(t, 1, store.saveCount())
	assert.Equal(t, "streamed reply", store.saved[0].Response)
}

func TestRespondStreamRequiresCallback(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), &fakeIndex{}, nil, &fakeModel{response: "x"}, enabledOptions())
	_, err := o.RespondStream(context.Background(), "alice", "hi", models.RoleUser, nil)
	require.Error(t, err)
}
