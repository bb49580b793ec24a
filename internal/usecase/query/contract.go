package query

import (
	"context"

	"github.com/pokelab/pokedex/internal/domain"
	domquery "github.com/pokelab/pokedex/internal/domain/query"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator produces answer text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorSearcher runs KNN similarity search over the embedded corpus.
type VectorSearcher interface {
	SearchKNN(ctx context.Context, vector []float32, k int) ([]domquery.ContextItem, error)
}
