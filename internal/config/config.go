package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the pokedex API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	PokeAPI    PokeAPIConfig    `yaml:"pokeapi"`
	Eval       EvalConfig       `yaml:"eval"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds vector store settings.
type StoreConfig struct {
	Driver     string   `yaml:"driver"` // chromem, redis (default: chromem)
	Path       string   `yaml:"path"`   // chromem persistence dir, empty = in-memory
	Collection string   `yaml:"collection"`
	Addrs      []string `yaml:"addrs"` // redis only
	Password   string   `yaml:"password"`
	Index      string   `yaml:"index"`
	KeyPrefix  string   `yaml:"key_prefix"`

	ReadinessTimeout int `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // gemini, openai (default: gemini)
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"` // openai-compatible endpoints only
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // gemini, openai (default: embedding provider)
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RetrievalConfig holds KNN retrieval settings.
type RetrievalConfig struct {
	TopK         int `yaml:"top_k"`
	DetailedTopK int `yaml:"detailed_top_k"`
}

// CorpusConfig holds record and index file locations.
type CorpusConfig struct {
	Dir      string `yaml:"dir"`
	IndexDir string `yaml:"index_dir"`
}

// PokeAPIConfig holds upstream API client settings.
type PokeAPIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
	Workers           int     `yaml:"workers"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// EvalConfig holds answer quality tracking settings.
type EvalConfig struct {
	FaithfulnessThreshold float64 `yaml:"faithfulness_threshold"`
	LogPath               string  `yaml:"log_path"` // empty = disabled
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "chromem"
	}
	if c.Store.Collection == "" {
		c.Store.Collection = "pokedex"
	}
	if c.Store.Index == "" {
		c.Store.Index = "pokedex"
	}
	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = "pokedex:doc:"
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "gemini"
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = c.Embedding.Provider
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = c.Embedding.BaseURL
	}
	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = 0.2
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.DetailedTopK <= 0 {
		c.Retrieval.DetailedTopK = 2 * c.Retrieval.TopK
	}
	if c.PokeAPI.RequestsPerSecond <= 0 {
		c.PokeAPI.RequestsPerSecond = 5
	}
	if c.PokeAPI.Workers <= 0 {
		c.PokeAPI.Workers = 4
	}
	if c.Eval.FaithfulnessThreshold <= 0 {
		c.Eval.FaithfulnessThreshold = 0.7
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case "chromem":
		// ok
	case "redis":
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for the redis driver")
		}
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver must be \"chromem\" or \"redis\", got %q", c.Store.Driver)
	}
	switch c.Embedding.Provider {
	case "gemini", "openai":
		// ok
	default:
		return fmt.Errorf("embedding.provider must be \"gemini\" or \"openai\", got %q", c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "gemini", "openai":
		// ok
	default:
		return fmt.Errorf("generation.provider must be \"gemini\" or \"openai\", got %q", c.Generation.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Retrieval.DetailedTopK < c.Retrieval.TopK {
		return fmt.Errorf("retrieval.detailed_top_k must be >= retrieval.top_k")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
