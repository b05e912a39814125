package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tourrag/internal/domain"
)

// Config holds all configuration for the attraction assistant.
type Config struct {
	Sources    SourcesConfig    `yaml:"sources"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Index      IndexConfig      `yaml:"index"`
	LocalStore LocalStoreConfig `yaml:"local_store"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type SourcesConfig struct {
	Dirs     []string `yaml:"dirs"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "gemini", "openai", "mock"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	Dimension int    `yaml:"dimension"`
	BaseURL   string `yaml:"base_url"` // OpenAI-compatible endpoint override

	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
}

type GenerationConfig struct {
	Provider     string  `yaml:"provider"` // "gemini", "openai"
	Model        string  `yaml:"model"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	BaseURL      string  `yaml:"base_url"`
	Temperature  float32 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// IndexConfig holds the vector index service settings.
type IndexConfig struct {
	URL        string        `yaml:"url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
	Disabled   bool          `yaml:"disabled"` // local-only mode
}

type LocalStoreConfig struct {
	Path string `yaml:"path"` // ".json" selects the flat file store, anything else bbolt
}

type RetrieveConfig struct {
	TopK             int           `yaml:"top_k"`
	TextFilterFactor int           `yaml:"text_filter_factor"`
	TextFilterMin    int           `yaml:"text_filter_min"`
	MinScore         float64       `yaml:"min_score"` // 0 = disabled
	CacheSize        int           `yaml:"cache_size"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

const defaultSystemPrompt = `You are a friendly travel assistant for tourist attractions.
Answer using the provided context. If the context does not contain the answer, say so
and offer general guidance instead of inventing details.`

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Dirs:     []string{"data"},
			Includes: []string{"**/*.json", "**/*.txt", "**/*.md", "**/*.html"},
			Excludes: []string{"**/.git/**", "**/node_modules/**", "**/.rag/**"},
		},
		Chunking: ChunkingConfig{
			Size:    300,
			Overlap: 50,
		},
		Embedding: EmbeddingConfig{
			Provider:  "gemini",
			Model:     "gemini-embedding-001",
			APIKeyEnv: "GOOGLE_API_KEY",
			Dimension: domain.DefaultDimension,
		},
		Generation: GenerationConfig{
			Provider:     "gemini",
			Model:        "gemini-2.0-flash",
			APIKeyEnv:    "GOOGLE_API_KEY",
			Temperature:  0.7,
			SystemPrompt: defaultSystemPrompt,
		},
		Index: IndexConfig{
			URL:        "http://localhost:6333",
			APIKeyEnv:  "QDRANT_API_KEY",
			Collection: "attractions",
			Timeout:    30 * time.Second,
		},
		LocalStore: LocalStoreConfig{
			Path: filepath.Join(".rag", "embeddings.json"),
		},
		Retrieve: RetrieveConfig{
			TopK:             5,
			TextFilterFactor: 3,
			TextFilterMin:    20,
			CacheSize:        256,
			CacheTTL:         10 * time.Minute,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file and applies the environment overlay.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for rag.yaml).
// A .env file in the directory is loaded first; variables already set win.
func LoadFromDir(dir string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	path := filepath.Join(dir, "rag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".rag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Index.URL = getEnv("QDRANT_URL", c.Index.URL)
	c.Index.Collection = getEnv("RAG_COLLECTION", c.Index.Collection)
	c.Index.Disabled = getEnvBool("RAG_LOCAL_ONLY", c.Index.Disabled)
	c.LocalStore.Path = getEnv("RAG_LOCAL_STORE", c.LocalStore.Path)
	c.Embedding.Provider = getEnv("RAG_EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Generation.Provider = getEnv("RAG_GENERATION_PROVIDER", c.Generation.Provider)
	c.Retrieve.TopK = getEnvInt("RAG_TOP_K", c.Retrieve.TopK)
	c.Server.Addr = getEnv("RAG_ADDR", c.Server.Addr)
	c.Logging.Level = getEnv("RAG_LOG_LEVEL", c.Logging.Level)
}

// Validate reports the first invalid setting as a *domain.ConfigurationError.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return &domain.ConfigurationError{Field: "chunking.size", Reason: "must be positive"}
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return &domain.ConfigurationError{Field: "chunking.overlap", Reason: "must be in [0, size)"}
	}
	if c.Embedding.Dimension <= 0 {
		return &domain.ConfigurationError{Field: "embedding.dimension", Reason: "must be positive"}
	}
	switch c.Embedding.Provider {
	case "gemini", "openai", "mock":
	default:
		return &domain.ConfigurationError{Field: "embedding.provider", Reason: fmt.Sprintf("unknown provider %q", c.Embedding.Provider)}
	}
	switch c.Generation.Provider {
	case "gemini", "openai":
	default:
		return &domain.ConfigurationError{Field: "generation.provider", Reason: fmt.Sprintf("unknown provider %q", c.Generation.Provider)}
	}
	if strings.TrimSpace(c.Index.Collection) == "" {
		return &domain.ConfigurationError{Field: "index.collection", Reason: "must not be empty"}
	}
	if !c.Index.Disabled && c.Index.URL == "" {
		return &domain.ConfigurationError{Field: "index.url", Reason: "must be set unless the index is disabled"}
	}
	if c.Retrieve.TopK <= 0 {
		return &domain.ConfigurationError{Field: "retrieve.top_k", Reason: "must be positive"}
	}
	if c.LocalStore.Path == "" {
		return &domain.ConfigurationError{Field: "local_store.path", Reason: "must not be empty"}
	}
	return nil
}

// RequireAPIKey reads the key named by envName.
func RequireAPIKey(field, envName string) (string, error) {
	if envName == "" {
		return "", &domain.ConfigurationError{Field: field, Reason: "no API key variable configured"}
	}
	key := os.Getenv(envName)
	if key == "" {
		return "", &domain.ConfigurationError{Field: field, Reason: envName + " is not set"}
	}
	return key, nil
}

// IndexAPIKey returns the optional index service key.
func (c *Config) IndexAPIKey() string {
	if c.Index.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Index.APIKeyEnv)
}

// LocalStorePath resolves the local store path against dir.
func (c *Config) LocalStorePath(dir string) string {
	if filepath.IsAbs(c.LocalStore.Path) {
		return c.LocalStore.Path
	}
	return filepath.Join(dir, c.LocalStore.Path)
}

// EnsureRAGDir ensures the .rag directory exists.
func EnsureRAGDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".rag"), 0755)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
