// Package vectorstore holds the vector storage drivers. Both drivers embed
// documents at upsert time through the configured provider and answer KNN
// searches with scored context items.
package vectorstore

import (
	"context"

	"github.com/pokelab/pokedex/internal/domain"
)

// Embedder vectorizes text. Satisfied by the gemini and openai transports.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
