package query

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/catalog"
	"github.com/pokelab/pokedex/internal/domain"
	"github.com/pokelab/pokedex/internal/metrics"
	domquery "github.com/pokelab/pokedex/internal/domain/query"
)

// Options holds retrieval tuning.
type Options struct {
	TopK         int // context items for normal questions
	DetailedTopK int // context items when a detailed answer is requested
}

// Service answers questions by routing them to exact category lookup or to
// semantic retrieval plus generation. Loading and querying are mutually
// exclusive phases: queries before the first Install fail with ErrNotReady.
type Service struct {
	router *Router
	store  VectorSearcher
	embed  Embedder
	gen    Generator
	opts   Options
	logger *zap.Logger

	mu  sync.RWMutex
	cat *catalog.Catalog
}

// New creates a query service. The service is not ready until Install is
// called with a built catalog.
func New(store VectorSearcher, embed Embedder, gen Generator, opts Options, logger *zap.Logger) *Service {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.DetailedTopK <= 0 {
		opts.DetailedTopK = 2 * opts.TopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		router: NewRouter(),
		store:  store,
		embed:  embed,
		gen:    gen,
		opts:   opts,
		logger: logger,
	}
}

// Install swaps in a freshly built catalog and marks the service ready.
// Called by the ingest pipeline after the vector store is populated.
func (s *Service) Install(cat *catalog.Catalog) {
	s.mu.Lock()
	s.cat = cat
	s.mu.Unlock()
}

// Ready reports whether a corpus has been loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat != nil
}

// Query answers one question. detailed widens the retrieved context.
func (s *Service) Query(ctx context.Context, question string, detailed bool) (domquery.Result, error) {
	s.mu.RLock()
	cat := s.cat
	s.mu.RUnlock()

	if cat == nil {
		return domquery.Result{}, fmt.Errorf("query %q: %w", question, domain.ErrNotReady)
	}

	decision := s.router.Route(question, cat)
	if decision.IsExact() {
		s.logger.Debug("exact retrieval",
			zap.String("dimension", decision.Dimension()),
			zap.String("tag", decision.Tag()),
			zap.Int("members", len(decision.Names())),
		)
		metrics.QueriesTotal.WithLabelValues(string(domquery.Exact)).Inc()
		return domquery.NewResult(decision.Answer(), nil, domquery.Exact), nil
	}

	return s.answerSemantic(ctx, question, detailed)
}

// answerSemantic embeds the question, retrieves top-K context, and prompts
// the generation backend. A generation error surfaces as a per-query
// failure: the vector store stays valid and the caller retries with backoff.
func (s *Service) answerSemantic(ctx context.Context, question string, detailed bool) (domquery.Result, error) {
	k := s.opts.TopK
	if detailed {
		k = s.opts.DetailedTopK
	}

	embRes, err := s.embed.Embed(ctx, question)
	if err != nil {
		return domquery.Result{}, fmt.Errorf("vectorize question: %w", err)
	}

	items, err := s.store.SearchKNN(ctx, embRes.Embedding, k)
	if err != nil {
		return domquery.Result{}, fmt.Errorf("search knn: %w", err)
	}

	answer, err := s.gen.Generate(ctx, buildPrompt(question, items))
	if err != nil {
		return domquery.Result{}, fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Debug("semantic retrieval",
		zap.Int("k", k),
		zap.Int("context_items", len(items)),
	)
	metrics.QueriesTotal.WithLabelValues(string(domquery.Semantic)).Inc()
	return domquery.NewResult(answer, items, domquery.Semantic), nil
}
