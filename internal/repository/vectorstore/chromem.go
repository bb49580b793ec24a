package vectorstore

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/domain"
	domquery "github.com/pokelab/pokedex/internal/domain/query"
)

// upsertConcurrency bounds parallel embedding calls during a corpus load.
const upsertConcurrency = 4

// ChromemStore is the embedded vector store driver. With a path it persists
// under a local directory, the lightweight stand-in for a hosted vector
// database; without one it stays in memory, which the tests rely on.
type ChromemStore struct {
	db     *chromem.DB
	col    *chromem.Collection
	logger *zap.Logger
}

// ChromemConfig holds the embedded store settings.
type ChromemConfig struct {
	Path       string // empty = in-memory
	Collection string
	Embedder   Embedder
	Logger     *zap.Logger
}

// NewChromem opens (or creates) the collection.
func NewChromem(cfg ChromemConfig) (*ChromemStore, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	var (
		db  *chromem.DB
		err error
	)
	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent store %s: %w", cfg.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}

	embed := cfg.Embedder
	col, err := db.GetOrCreateCollection(cfg.Collection, nil, func(ctx context.Context, text string) ([]float32, error) {
		res, err := embed.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return res.Embedding, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", cfg.Collection, err)
	}

	return &ChromemStore{db: db, col: col, logger: cfg.Logger}, nil
}

// Upsert embeds and stores a document batch.
func (s *ChromemStore) Upsert(ctx context.Context, documents []domain.Document) error {
	if len(documents) == 0 {
		return nil
	}

	batch := make([]chromem.Document, len(documents))
	for i, d := range documents {
		batch[i] = chromem.Document{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: d.Metadata,
		}
	}

	if err := s.col.AddDocuments(ctx, batch, upsertConcurrency); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}

	s.logger.Debug("documents upserted", zap.Int("count", len(batch)))
	return nil
}

// SearchKNN returns the k nearest documents to the query vector.
func (s *ChromemStore) SearchKNN(ctx context.Context, vector []float32, k int) ([]domquery.ContextItem, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}

	// chromem rejects k above the live document count.
	if n := s.col.Count(); k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := s.col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	items := make([]domquery.ContextItem, len(results))
	for i, r := range results {
		items[i] = domquery.NewContextItem(r.Content, r.Metadata, float64(r.Similarity))
	}
	return items, nil
}

// Count returns the number of stored documents.
func (s *ChromemStore) Count(_ context.Context) (int, error) {
	return s.col.Count(), nil
}
