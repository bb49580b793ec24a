package gemini

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pokelab/pokedex/internal/domain"
	"github.com/pokelab/pokedex/internal/metrics"
)

// Embedder is an embedding provider backed by the Gemini embeddings API.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int32
	logger     *zap.Logger
}

// EmbedderConfig holds the embedding provider settings.
type EmbedderConfig struct {
	Client     *genai.Client
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates a Gemini embedding provider.
func NewEmbedder(cfg *EmbedderConfig) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:     cfg.Client,
		model:      cfg.Model,
		dimensions: int32(cfg.Dimensions),
		logger:     logger,
	}
}

// Embed returns the vector for a text with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	cfg := &genai.EmbedContentConfig{}
	if e.dimensions > 0 {
		cfg.OutputDimensionality = &e.dimensions
	}

	start := time.Now()

	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err, domain.ErrEmbeddingProviderError)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())

	return domain.EmbeddingResult{
		Embedding: resp.Embeddings[0].Values,
	}, nil
}
