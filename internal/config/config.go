package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/metric"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/scoring"
)

// Config holds the vidsearch configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Ops       OpsConfig       `yaml:"ops"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// CatalogConfig describes the Parquet catalog file.
type CatalogConfig struct {
	Path          string `yaml:"path"`
	TitleColumn   string `yaml:"title_column"`
	VideoIDColumn string `yaml:"video_id_column"`
	// Layout is "prefix" (named embedding columns) or "positional" (column ranges).
	Layout           string `yaml:"layout"`
	TitlePrefix      string `yaml:"title_prefix"`
	TranscriptPrefix string `yaml:"transcript_prefix"`
	TitleOffset      int    `yaml:"title_offset"`
	TranscriptOffset int    `yaml:"transcript_offset"`
}

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"` // openai, ollama (default: ollama)
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	SendDimensions   bool   `yaml:"send_dimensions"` // openai only: request truncated vectors
	QueryInstruction string `yaml:"query_instruction"`
}

// SearchConfig holds default ranking parameters.
type SearchConfig struct {
	// Threshold is the exclusive upper bound on combined distance. 0 means the model default.
	Threshold float64 `yaml:"threshold"`
	// TopK is the default result bound. 0 means the model default.
	TopK             int     `yaml:"top_k"`
	Metric           string  `yaml:"metric"`   // manhattan, euclidean, cosine
	Combiner         string  `yaml:"combiner"` // sum, weighted
	TitleWeight      float64 `yaml:"title_weight"`
	TranscriptWeight float64 `yaml:"transcript_weight"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Driver   string       `yaml:"driver"` // none, redis, badger (default: none)
	TTLHours int          `yaml:"ttl_hours"`
	Redis    RedisConfig  `yaml:"redis"`
	Badger   BadgerConfig `yaml:"badger"`
}

// RedisConfig holds Redis/Valkey connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// BadgerConfig holds embedded Badger settings.
type BadgerConfig struct {
	Path string `yaml:"path"`
}

// OpsConfig holds the ops HTTP server settings (health and metrics).
type OpsConfig struct {
	Port            int `yaml:"port"` // 0 disables the ops server
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheRedis  = "redis"
	CacheBadger = "badger"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	def := domain.DefaultVectorConfig()

	if c.Catalog.Layout == "" {
		c.Catalog.Layout = "prefix"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOllama
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = def.Model
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = def.Dimensions
	}

	if c.Search.Threshold == 0 {
		c.Search.Threshold = def.Threshold
	}
	if c.Search.TopK == 0 {
		c.Search.TopK = def.TopK
	}
	if c.Search.Metric == "" {
		c.Search.Metric = def.DistanceMetric
	}
	if c.Search.Combiner == "" {
		c.Search.Combiner = string(scoring.KindSum)
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheNone
	}
	if c.Cache.Redis.ReadinessTimeout <= 0 {
		c.Cache.Redis.ReadinessTimeout = 10
	}
	if c.Cache.Badger.Path == "" {
		c.Cache.Badger.Path = filepath.Join(".cache", "vidsearch", "embeddings")
	}

	if c.Ops.ReadTimeoutSec <= 0 {
		c.Ops.ReadTimeoutSec = 10
	}
	if c.Ops.WriteTimeoutSec <= 0 {
		c.Ops.WriteTimeoutSec = 10
	}
	if c.Ops.ShutdownSec <= 0 {
		c.Ops.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Catalog.Path == "" {
		return errors.New("catalog.path is required")
	}
	switch c.Catalog.Layout {
	case "prefix":
	case "positional":
		if c.Catalog.TitleOffset < 0 || c.Catalog.TranscriptOffset < 0 {
			return errors.New("catalog offsets must be >= 0")
		}
	default:
		return fmt.Errorf("catalog.layout must be \"prefix\" or \"positional\", got %q", c.Catalog.Layout)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.BaseURL == "" {
			return errors.New("embedding.base_url is required for the openai provider")
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderOllama, c.Embedding.Provider)
	}

	if err := c.Search.validate(); err != nil {
		return err
	}

	switch c.Cache.Driver {
	case CacheNone, CacheBadger:
	case CacheRedis:
		if len(c.Cache.Redis.Addrs) == 0 {
			return errors.New("cache.redis.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver must be none, redis or badger, got %q", c.Cache.Driver)
	}
	if c.Cache.TTLHours < 0 {
		return fmt.Errorf("cache.ttl_hours must be >= 0, got %d", c.Cache.TTLHours)
	}

	if c.Ops.Port < 0 || c.Ops.Port > 65535 {
		return fmt.Errorf("ops.port must be between 0 and 65535, got %d", c.Ops.Port)
	}
	return nil
}

func (s *SearchConfig) validate() error {
	if math.IsNaN(s.Threshold) || s.Threshold < 0 {
		return fmt.Errorf("search.threshold must be >= 0, got %v", s.Threshold)
	}
	if s.TopK < 0 {
		return fmt.Errorf("search.top_k must be >= 0, got %d", s.TopK)
	}
	if !metric.Metric(s.Metric).IsValid() {
		return fmt.Errorf("search.metric must be manhattan, euclidean or cosine, got %q", s.Metric)
	}
	if _, err := scoring.New(scoring.Kind(s.Combiner), s.TitleWeight, s.TranscriptWeight); err != nil {
		return fmt.Errorf("search.combiner: %w", err)
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
