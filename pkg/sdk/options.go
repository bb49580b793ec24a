package pokedex

import (
	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/usecase/query"
)

type clientConfig struct {
	driver     string
	path       string
	collection string
	addrs      []string
	password   string
	index      string
	keyPrefix  string
	dimensions int

	geminiAPIKey    string
	embeddingModel  string
	generationModel string

	embedder  query.Embedder
	generator query.Generator

	topK         int
	detailedTopK int
	indexDir     string
	logger       *zap.Logger
}

// Option configures the client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(cfg *clientConfig) { f(cfg) }

// WithChromem stores vectors in an embedded persistent collection under dir.
// An empty dir keeps the collection in memory. This is the default driver.
func WithChromem(dir string) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.driver = "chromem"
		cfg.path = dir
	})
}

// WithRedis stores vectors in Redis 8+ with vector search.
func WithRedis(addrs []string, password string, dimensions int) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.driver = "redis"
		cfg.addrs = addrs
		cfg.password = password
		cfg.dimensions = dimensions
	})
}

// WithCollection overrides the collection (and index) name.
func WithCollection(name string) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.collection = name
		cfg.index = name
	})
}

// WithGemini uses the Gemini API for embedding and answer generation.
func WithGemini(apiKey, embeddingModel, generationModel string) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.geminiAPIKey = apiKey
		cfg.embeddingModel = embeddingModel
		cfg.generationModel = generationModel
	})
}

// WithEmbedder supplies a custom embedding provider.
func WithEmbedder(e query.Embedder) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.embedder = e
	})
}

// WithGenerator supplies a custom answer generator.
func WithGenerator(g query.Generator) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.generator = g
	})
}

// WithTopK overrides how many snippets a semantic answer is grounded on.
func WithTopK(topK, detailedTopK int) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.topK = topK
		cfg.detailedTopK = detailedTopK
	})
}

// WithIndexDir persists the categorical indexes as JSON files under dir.
func WithIndexDir(dir string) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.indexDir = dir
	})
}

// WithLogger attaches a zap logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.logger = logger
	})
}
