package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// fakeStore is an in-memory TurnStore with per-id failure injection and
// call recording.
type fakeStore struct {
	mu      sync.Mutex
	turns   map[string]models.Turn
	failIDs map[string]bool
	saveErr error
	saved   []models.Turn
	calls   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		turns:   make(map[string]models.Turn),
		failIDs: make(map[string]bool),
	}
}

func (s *fakeStore) add(t models.Turn) {
	s.turns[t.ID] = t
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*models.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[id] {
		return nil, errors.New("store unavailable")
	}
	t, ok := s.turns[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *fakeStore) Save(_ context.Context, t models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "save")
	if s.saveErr != nil {
		return s.saveErr
	}
	s.turns[t.ID] = t
	s.saved = append(s.saved, t)
	return nil
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// fakeIndex is an in-memory VectorIndex with failure injection and call
// recording shared with fakeStore (for order assertions).
type fakeIndex struct {
	mu        sync.Mutex
	hits      []models.SimilarityHit
	queries   int
	queryErr  error
	upsertErr error
	upserted  []models.Turn
	calls     *[]string
}

func (i *fakeIndex) Query(_ context.Context, _, _ string, _ int) ([]models.SimilarityHit, error) {
	i.mu.Lock()
	i.queries++
	i.mu.Unlock()
	if i.queryErr != nil {
		return nil, i.queryErr
	}
	return i.hits, nil
}

func (i *fakeIndex) Upsert(_ context.Context, t models.Turn) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.calls != nil {
		*i.calls = append(*i.calls, "upsert")
	}
	if i.upsertErr != nil {
		return i.upsertErr
	}
	i.upserted = append(i.upserted, t)
	return nil
}

// fakeSummarizer returns a fixed summary or error and records invocations.
type fakeSummarizer struct {
	out   string
	err   error
	calls int
}

func (s *fakeSummarizer) Summarize(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.out, nil
}

// fakeModel echoes a fixed response and captures the prompt it received.
type fakeModel struct {
	response string
	err      error
	prompts  [][]models.PromptMessage
}

func (m *fakeModel) Invoke(_ context.Context, msgs []models.PromptMessage, _ string) (string, error) {
	m.prompts = append(m.prompts, msgs)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *fakeModel) InvokeStream(ctx context.Context, msgs []models.PromptMessage, owner string, onToken func(string) error) (string, error) {
	if _, err := m.Invoke(ctx, msgs, owner); err != nil {
		return "", err
	}
	// Stream in two chunks to exercise accumulation.
	half := len(m.response) / 2
	for _, chunk := range []string{m.response[:half], m.response[half:]} {
		if err := onToken(chunk); err != nil {
			return "", err
		}
	}
	return m.response, nil
}
