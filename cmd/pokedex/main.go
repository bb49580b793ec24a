package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/config"
	"github.com/pokelab/pokedex/internal/domain"
	domquery "github.com/pokelab/pokedex/internal/domain/query"
	logpkg "github.com/pokelab/pokedex/internal/logger"
	"github.com/pokelab/pokedex/internal/metrics"
	"github.com/pokelab/pokedex/internal/repository/corpus"
	"github.com/pokelab/pokedex/internal/repository/embcache"
	"github.com/pokelab/pokedex/internal/repository/vectorstore"
	chiTransport "github.com/pokelab/pokedex/internal/transport/chi"
	"github.com/pokelab/pokedex/internal/transport/gemini"
	openaiTransport "github.com/pokelab/pokedex/internal/transport/openai"
	"github.com/pokelab/pokedex/internal/transport/pokeapi"
	evaluc "github.com/pokelab/pokedex/internal/usecase/eval"
	ingestuc "github.com/pokelab/pokedex/internal/usecase/ingest"
	queryuc "github.com/pokelab/pokedex/internal/usecase/query"
	"github.com/pokelab/pokedex/internal/version"
)

// vectorStore is what the use cases need from either store driver.
type vectorStore interface {
	Upsert(ctx context.Context, documents []domain.Document) error
	SearchKNN(ctx context.Context, vector []float32, k int) ([]domquery.ContextItem, error)
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pokedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	// Register provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	ctx := context.Background()

	embedder, generator, err := buildProviders(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create model providers", zap.Error(err))
	}
	logger.Info("Model providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_model", cfg.Generation.Model),
	)

	// Cache embeddings so reloads and repeated questions skip the provider.
	embedder = embcache.New(embedder, metrics.EmbeddingCacheTotal, logger)

	// Create vector store based on driver
	var store vectorStore
	switch cfg.Store.Driver {
	case "chromem":
		store, err = vectorstore.NewChromem(vectorstore.ChromemConfig{
			Path:       cfg.Store.Path,
			Collection: cfg.Store.Collection,
			Embedder:   embedder,
			Logger:     logger,
		})
		if err != nil {
			logger.Fatal("Failed to open vector store", zap.Error(err))
		}
	case "redis":
		redisStore, rerr := vectorstore.NewRedis(vectorstore.RedisConfig{
			Addrs:      cfg.Store.Addrs,
			Password:   cfg.Store.Password,
			Index:      cfg.Store.Index,
			KeyPrefix:  cfg.Store.KeyPrefix,
			Dimensions: cfg.Embedding.Dimensions,
			Embedder:   embedder,
			Logger:     logger,
		})
		if rerr != nil {
			logger.Fatal("Failed to create vector store", zap.Error(rerr))
		}
		defer redisStore.Close()

		readiness := time.Duration(cfg.Store.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Vector store not ready", zap.Error(err))
		}
		if err := redisStore.EnsureIndex(ctx); err != nil {
			logger.Fatal("Failed to create search index", zap.Error(err))
		}
		store = redisStore
	default:
		logger.Fatal("Unknown store driver", zap.String("driver", cfg.Store.Driver))
	}
	logger.Info("Vector store ready")

	// Create use case services
	querySvc := queryuc.New(store, embedder, generator, queryuc.Options{
		TopK:         cfg.Retrieval.TopK,
		DetailedTopK: cfg.Retrieval.DetailedTopK,
	}, logger)
	ingestSvc := ingestuc.New(store, querySvc, cfg.Corpus.IndexDir, logger)
	evaluator := evaluc.New(logger)
	interactions := evaluc.NewInteractionLog(cfg.Eval.LogPath, cfg.Eval.FaithfulnessThreshold, logger)
	fetcher := pokeapi.New(pokeapi.Config{
		BaseURL:           cfg.PokeAPI.BaseURL,
		RequestsPerSecond: cfg.PokeAPI.RequestsPerSecond,
		BurstSize:         cfg.PokeAPI.BurstSize,
		Workers:           cfg.PokeAPI.Workers,
		Timeout:           time.Duration(cfg.PokeAPI.TimeoutSec) * time.Second,
		Logger:            logger,
	})

	// Load the corpus from disk so the retriever starts ready when records
	// exist. The same store persists records fetched through the API later.
	var corpusStore *corpus.Store
	if cfg.Corpus.Dir != "" {
		corpusStore, err = corpus.New(cfg.Corpus.Dir, logger)
		if err != nil {
			logger.Fatal("Failed to open corpus store", zap.Error(err))
		}
		loadCorpus(ctx, corpusStore, ingestSvc, logger)
	}

	// Create chi server
	var saver chiTransport.Saver
	if corpusStore != nil {
		saver = corpusStore
	}
	server := chiTransport.NewServer(querySvc, ingestSvc, evaluator, interactions, fetcher, saver, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildProviders assembles the embedder and generator for the configured providers.
func buildProviders(
	ctx context.Context, cfg config.Config, logger *zap.Logger,
) (queryuc.Embedder, queryuc.Generator, error) {
	var (
		embedder  queryuc.Embedder
		generator queryuc.Generator
	)

	switch cfg.Embedding.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Embedding.APIKey)
		if err != nil {
			return nil, nil, err
		}
		embedder = gemini.NewEmbedder(&gemini.EmbedderConfig{
			Client:     client,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
	case "openai":
		client := openaiTransport.NewClient(cfg.Embedding.APIKey, cfg.Embedding.BaseURL)
		embedder = openaiTransport.NewEmbedder(client, &openaiTransport.Config{
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
	}

	switch cfg.Generation.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Generation.APIKey)
		if err != nil {
			return nil, nil, err
		}
		generator = gemini.NewGenerator(&gemini.GeneratorConfig{
			Client:      client,
			Model:       cfg.Generation.Model,
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
			Logger:      logger,
		})
	case "openai":
		client := openaiTransport.NewClient(cfg.Generation.APIKey, cfg.Generation.BaseURL)
		generator = openaiTransport.NewGenerator(client, &openaiTransport.Config{
			Model:       cfg.Generation.Model,
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
			Logger:      logger,
		})
	}

	return embedder, generator, nil
}

// loadCorpus reads saved records and brings the retriever online. A missing
// corpus dir is not fatal, the server just starts not ready.
func loadCorpus(ctx context.Context, corpusStore *corpus.Store, ingestSvc *ingestuc.Service, logger *zap.Logger) {
	records, err := corpusStore.Load()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Corpus dir not found, starting without records")
			return
		}
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}
	if len(records) == 0 {
		logger.Warn("Corpus is empty, starting without records")
		return
	}

	if err := ingestSvc.Load(ctx, records); err != nil {
		logger.Fatal("Failed to ingest corpus", zap.Error(err))
	}
	logger.Info("Corpus ingested", zap.Int("records", len(records)))
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
