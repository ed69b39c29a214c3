package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/converse-go/internal/models"
)

func testTurn(id string, at time.Time) models.Turn {
	return models.Turn{
		ID:        id,
		Owner:     "alice",
		Prompt:    "prompt-" + id,
		Response:  "response-" + id,
		CreatedAt: at,
	}
}

func TestResolveDropsFailuresKeepsRest(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.add(testTurn("a", base.Add(2*time.Hour)))
	store.add(testTurn("b", base))
	store.add(testTurn("c", base.Add(time.Hour)))
	store.failIDs["broken"] = true

	hits := []models.SimilarityHit{
		{TurnID: "a"}, // newest, but highest relevance rank
		{TurnID: "broken"},
		{TurnID: "missing"},
		{TurnID: "b"},
		{TurnID: "c"},
	}

	resolver := NewHistoryResolver(store, nil)
	entries := resolver.Resolve(context.Background(), hits)

	// 5 hits, 2 failed lookups (one errored, one gone) leaves 3 entries.
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	// Chronological, not relevance order.
	wantOrder := []string{"b", "c", "a"}
	for i, id := range wantOrder {
		if !strings.Contains(entries[i].Text, "prompt-"+id) {
			t.Errorf("entry %d = %q, want turn %s", i, entries[i].Text, id)
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.Before(entries[i-1].CreatedAt) {
			t.Error("entries must be ordered by ascending creation time")
		}
	}
}

func TestResolveTimestampTiesKeepInputOrder(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.add(testTurn("x", at))
	store.add(testTurn("y", at))
	store.add(testTurn("z", at))

	hits := []models.SimilarityHit{{TurnID: "y"}, {TurnID: "z"}, {TurnID: "x"}}
	resolver := NewHistoryResolver(store, nil)

	// The tie-break must be deterministic across repeated calls.
	for run := 0; run < 5; run++ {
		entries := resolver.Resolve(context.Background(), hits)
		if len(entries) != 3 {
			t.Fatalf("got %d entries, want 3", len(entries))
		}
		wantOrder := []string{"y", "z", "x"}
		for i, id := range wantOrder {
			if !strings.Contains(entries[i].Text, "prompt-"+id) {
				t.Fatalf("run %d: entry %d = %q, want turn %s", run, i, entries[i].Text, id)
			}
		}
	}
}

func TestResolveAllFailuresNeverRaises(t *testing.T) {
	store := newFakeStore()
	store.failIDs["a"] = true

	hits := []models.SimilarityHit{{TurnID: "a"}, {TurnID: "gone"}}
	resolver := NewHistoryResolver(store, nil)

	entries := resolver.Resolve(context.Background(), hits)
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestResolveEmptyHits(t *testing.T) {
	resolver := NewHistoryResolver(newFakeStore(), nil)
	if entries := resolver.Resolve(context.Background(), nil); len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}
