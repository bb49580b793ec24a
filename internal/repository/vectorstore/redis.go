package vectorstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/domain"
	domquery "github.com/pokelab/pokedex/internal/domain/query"
)

// Hash field names of a stored document.
const (
	fieldContent  = "content"
	fieldMetadata = "metadata"
	fieldVector   = "vector"
	// vectorScoreField is the alias RediSearch returns KNN distances under.
	vectorScoreField = "__vector_score"
)

// RedisStore is the Redis 8+ vector store driver via rueidis (FT.CREATE /
// FT.SEARCH KNN over HASH documents).
type RedisStore struct {
	client rueidis.Client
	embed  Embedder
	index  string
	prefix string
	dims   int
	logger *zap.Logger
}

// RedisConfig holds connection and index settings.
type RedisConfig struct {
	Addrs      []string
	Password   string
	Index      string
	KeyPrefix  string
	Dimensions int
	Embedder   Embedder
	Logger     *zap.Logger
}

// NewRedis creates a Redis-backed store.
func NewRedis(cfg RedisConfig) (*RedisStore, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Index == "" {
		cfg.Index = "pokedex"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "pokedex:doc:"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &RedisStore{
		client: client,
		embed:  cfg.Embedder,
		index:  cfg.Index,
		prefix: cfg.KeyPrefix,
		dims:   cfg.Dimensions,
		logger: cfg.Logger,
	}, nil
}

// Close shuts down the client.
func (s *RedisStore) Close() {
	s.client.Close()
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or the timeout expires.
func (s *RedisStore) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureIndex creates the FT index when absent.
func (s *RedisStore) EnsureIndex(ctx context.Context) error {
	cmd := s.client.B().Arbitrary("FT.CREATE").Args(
		s.index,
		"ON", "HASH",
		"PREFIX", "1", s.prefix,
		"SCHEMA",
		fieldContent, "TEXT",
		fieldVector, "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dims),
		"DISTANCE_METRIC", "COSINE",
	).Build()

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if re, ok := rueidis.IsRedisErr(err); ok && containsIgnoreCase(re.Error(), "index already exists") {
			return nil
		}
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	return nil
}

// Upsert embeds and stores a document batch, one hash per document.
func (s *RedisStore) Upsert(ctx context.Context, documents []domain.Document) error {
	if len(documents) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(documents))
	for _, d := range documents {
		res, err := s.embed.Embed(ctx, d.Content)
		if err != nil {
			return fmt.Errorf("embed %s: %w", d.ID, err)
		}

		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata %s: %w", d.ID, err)
		}

		cmds = append(cmds, s.client.B().Hset().Key(s.prefix+d.ID).FieldValue().
			FieldValue(fieldContent, d.Content).
			FieldValue(fieldMetadata, string(meta)).
			FieldValue(fieldVector, vectorToBytes(res.Embedding)).
			Build())
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("hset %s: %w", documents[i].ID, err)
		}
	}

	s.logger.Debug("documents upserted", zap.Int("count", len(documents)))
	return nil
}

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
func (s *RedisStore) SearchKNN(ctx context.Context, vector []float32, k int) ([]domquery.ContextItem, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @%s $BLOB]", k, fieldVector)
	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(
		s.index, queryStr,
		"RETURN", "3", fieldContent, fieldMetadata, vectorScoreField,
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	).Build()

	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("ft.search: %w", err)
	}

	return parseKNNResult(raw)
}

// Count returns the number of indexed documents via FT.SEARCH LIMIT 0 0.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(s.index, "*", "LIMIT", "0", "0").Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return 0, fmt.Errorf("ft.search count: %w", err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// parseKNNResult decodes the RESP2 2-stride layout:
// [total, key1, fields1, key2, fields2, ...].
func parseKNNResult(raw []rueidis.RedisMessage) ([]domquery.ContextItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	items := make([]domquery.ContextItem, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		fieldArr, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(fieldArr)

		score := 0.0
		if distStr, ok := fields[vectorScoreField]; ok {
			if dist, err := strconv.ParseFloat(distStr, 64); err == nil {
				score = max(0, 1.0-dist) // cosine distance → similarity, clamped to [0,1]
			}
		}

		var metadata map[string]string
		if m := fields[fieldMetadata]; m != "" {
			_ = json.Unmarshal([]byte(m), &metadata)
		}

		items = append(items, domquery.NewContextItem(fields[fieldContent], metadata, score))
	}
	return items, nil
}

func parseFieldPairs(arr []rueidis.RedisMessage) map[string]string {
	fields := make(map[string]string, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		k, err := arr[i].ToString()
		if err != nil {
			continue
		}
		v, err := arr[i+1].ToString()
		if err != nil {
			continue
		}
		fields[k] = v
	}
	return fields
}

// vectorToBytes encodes float32 values as little-endian binary, the layout
// RediSearch expects for FLOAT32 vector blobs.
func vectorToBytes(vector []float32) string {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return rueidis.BinaryString(buf)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
