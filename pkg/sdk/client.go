package pokedex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/domain"
	domquery "github.com/pokelab/pokedex/internal/domain/query"
	"github.com/pokelab/pokedex/internal/repository/vectorstore"
	"github.com/pokelab/pokedex/internal/transport/gemini"
	evaluc "github.com/pokelab/pokedex/internal/usecase/eval"
	ingestuc "github.com/pokelab/pokedex/internal/usecase/ingest"
	queryuc "github.com/pokelab/pokedex/internal/usecase/query"
)

const defaultReadinessTimeout = 10 * time.Second

// vectorStore is what the client needs from either store driver.
type vectorStore interface {
	Upsert(ctx context.Context, documents []domain.Document) error
	SearchKNN(ctx context.Context, vector []float32, k int) ([]domquery.ContextItem, error)
}

// Client is the embedded engine entry point.
type Client struct {
	query  *queryuc.Service
	ingest *ingestuc.Service
	eval   *evaluc.Evaluator
	close  func()
}

// New creates a Client. The context is used for provider setup and the
// store readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:     "chromem",
		collection: "pokedex",
		index:      "pokedex",
		keyPrefix:  "pokedex:doc:",
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	embedder, generator, err := buildProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := createStore(ctx, cfg, embedder)
	if err != nil {
		return nil, err
	}

	querySvc := queryuc.New(store, embedder, generator, queryuc.Options{
		TopK:         cfg.topK,
		DetailedTopK: cfg.detailedTopK,
	}, cfg.logger)

	return &Client{
		query:  querySvc,
		ingest: ingestuc.New(store, querySvc, cfg.indexDir, cfg.logger),
		eval:   evaluc.New(cfg.logger),
		close:  closeStore,
	}, nil
}

// Close releases the store connection, if any.
func (c *Client) Close() {
	if c.close != nil {
		c.close()
	}
}

// Load validates records, indexes them and brings the retriever online.
func (c *Client) Load(ctx context.Context, records []domain.EntityRecord) error {
	if err := c.ingest.Load(ctx, records); err != nil {
		return fmt.Errorf("pokedex: load records: %w", err)
	}
	return nil
}

// Ready reports whether records have been loaded.
func (c *Client) Ready() bool {
	return c.query.Ready()
}

// Query answers a question, either from the categorical indexes or by
// retrieval-augmented generation.
func (c *Client) Query(ctx context.Context, question string) (Answer, error) {
	return c.queryWith(ctx, question, false)
}

// QueryDetailed answers with a wider retrieval window.
func (c *Client) QueryDetailed(ctx context.Context, question string) (Answer, error) {
	return c.queryWith(ctx, question, true)
}

func (c *Client) queryWith(ctx context.Context, question string, detailed bool) (Answer, error) {
	result, err := c.query.Query(ctx, question, detailed)
	if err != nil {
		return Answer{}, fmt.Errorf("pokedex: query: %w", err)
	}
	return answerFromResult(result), nil
}

// Score computes lexical quality metrics for a prediction against a
// reference answer and retrieval context.
func (c *Client) Score(prediction, reference string, context []string) evaluc.Scores {
	return c.eval.Score(prediction, reference, context)
}

func buildProviders(ctx context.Context, cfg *clientConfig) (queryuc.Embedder, queryuc.Generator, error) {
	embedder := cfg.embedder
	generator := cfg.generator

	if cfg.geminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.geminiAPIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("pokedex: %w", err)
		}
		if embedder == nil {
			embedder = gemini.NewEmbedder(&gemini.EmbedderConfig{
				Client:     client,
				Model:      cfg.embeddingModel,
				Dimensions: cfg.dimensions,
				Logger:     cfg.logger,
			})
		}
		if generator == nil {
			generator = gemini.NewGenerator(&gemini.GeneratorConfig{
				Client: client,
				Model:  cfg.generationModel,
				Logger: cfg.logger,
			})
		}
	}

	if embedder == nil {
		return nil, nil, errors.New("pokedex: embedder required (use WithGemini or WithEmbedder)")
	}
	if generator == nil {
		return nil, nil, errors.New("pokedex: generator required (use WithGemini or WithGenerator)")
	}
	return embedder, generator, nil
}

func createStore(ctx context.Context, cfg *clientConfig, embedder queryuc.Embedder) (vectorStore, func(), error) {
	switch cfg.driver {
	case "chromem":
		s, err := vectorstore.NewChromem(vectorstore.ChromemConfig{
			Path:       cfg.path,
			Collection: cfg.collection,
			Embedder:   embedder,
			Logger:     cfg.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("pokedex: create store: %w", err)
		}
		return s, nil, nil
	case "redis":
		s, err := vectorstore.NewRedis(vectorstore.RedisConfig{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			Index:      cfg.index,
			KeyPrefix:  cfg.keyPrefix,
			Dimensions: cfg.dimensions,
			Embedder:   embedder,
			Logger:     cfg.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("pokedex: create store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("pokedex: store not ready: %w", err)
		}
		if err := s.EnsureIndex(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("pokedex: create index: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("pokedex: unknown driver %q", cfg.driver)
	}
}
