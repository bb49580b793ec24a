package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pokelab/pokedex/internal/domain"
	"github.com/pokelab/pokedex/internal/metrics"
)

// Generator produces grounded answers with a Gemini chat model.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	logger      *zap.Logger
}

// GeneratorConfig holds the generation model settings.
type GeneratorConfig struct {
	Client      *genai.Client
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

// NewGenerator creates a Gemini answer generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client:      cfg.Client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		logger:      logger,
	}
}

// Generate runs a completed prompt through the model and returns the answer text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}

	start := time.Now()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.model, "error").Inc()
		return "", parseAPIError(err, domain.ErrGenerationFailed)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.model, "error").Inc()
		return "", fmt.Errorf("empty generation response: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(providerName, g.model).Observe(duration.Seconds())

	return answer, nil
}
