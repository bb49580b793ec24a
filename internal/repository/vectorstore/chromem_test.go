package vectorstore

import (
	"context"
	"strings"
	"testing"

	"github.com/pokelab/pokedex/internal/domain"
)

// fakeEmbedder maps text onto a tiny fixed vocabulary so nearest-neighbor
// behavior is deterministic without a network call.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, 3)
	lower := strings.ToLower(text)
	if strings.Contains(lower, "fire") {
		vec[0] = 1
	}
	if strings.Contains(lower, "water") {
		vec[1] = 1
	}
	if strings.Contains(lower, "grass") {
		vec[2] = 1
	}
	if vec[0] == 0 && vec[1] == 0 && vec[2] == 0 {
		vec[0], vec[1], vec[2] = 0.5, 0.5, 0.5
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromem(ChromemConfig{
		Collection: "test",
		Embedder:   fakeEmbedder{},
	})
	if err != nil {
		t.Fatalf("NewChromem() error = %v", err)
	}
	return store
}

func TestChromemStoreUpsertAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []domain.Document{
		{ID: "charizard", Content: "Charizard is a fire type", Metadata: map[string]string{"name": "charizard"}},
		{ID: "squirtle", Content: "Squirtle is a water type", Metadata: map[string]string{"name": "squirtle"}},
		{ID: "bulbasaur", Content: "Bulbasaur is a grass type", Metadata: map[string]string{"name": "bulbasaur"}},
	}
	if err := store.Upsert(ctx, docs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if got, err := store.Count(ctx); err != nil || got != 3 {
		t.Fatalf("Count() = %d, %v, want 3", got, err)
	}

	res, err := fakeEmbedder{}.Embed(ctx, "which pokemon is fire type")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	items, err := store.SearchKNN(ctx, res.Embedding, 1)
	if err != nil {
		t.Fatalf("SearchKNN() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("SearchKNN() returned %d items, want 1", len(items))
	}
	if got := items[0].Metadata()["name"]; got != "charizard" {
		t.Errorf("nearest document = %q, want charizard", got)
	}
	if score := items[0].Score(); score <= 0 || score > 1 {
		t.Errorf("score = %v, want in (0, 1]", score)
	}
}

func TestChromemStoreSearchClampsK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []domain.Document{
		{ID: "charizard", Content: "Charizard is a fire type"},
	}
	if err := store.Upsert(ctx, docs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	res, _ := fakeEmbedder{}.Embed(ctx, "fire")
	items, err := store.SearchKNN(ctx, res.Embedding, 10)
	if err != nil {
		t.Fatalf("SearchKNN() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("SearchKNN() returned %d items, want 1", len(items))
	}
}

func TestChromemStoreSearchEmpty(t *testing.T) {
	store := newTestStore(t)

	res, _ := fakeEmbedder{}.Embed(context.Background(), "fire")
	items, err := store.SearchKNN(context.Background(), res.Embedding, 3)
	if err != nil {
		t.Fatalf("SearchKNN() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("SearchKNN() on empty store returned %d items, want 0", len(items))
	}
}
