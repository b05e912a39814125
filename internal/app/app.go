package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"tourrag/config"
	"tourrag/internal/adapter/cache"
	"tourrag/internal/adapter/embedding"
	"tourrag/internal/adapter/llm"
	"tourrag/internal/adapter/memstore"
	"tourrag/internal/adapter/qdrant"
	"tourrag/internal/adapter/retriever"
	"tourrag/internal/adapter/store"
	"tourrag/internal/port"
	"tourrag/internal/usecase"
)

// NewEmbedder builds the configured embedding adapter, rate limited when
// requests_per_second is set.
func NewEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	var (
		embedder port.Embedder
		err      error
	)

	switch cfg.Embedding.Provider {
	case "gemini":
		key, kerr := config.RequireAPIKey("embedding.api_key_env", cfg.Embedding.APIKeyEnv)
		if kerr != nil {
			return nil, kerr
		}
		embedder, err = embedding.NewGeminiEmbedder(ctx, key, cfg.Embedding.Model, cfg.Embedding.Dimension)
	case "openai":
		key, kerr := config.RequireAPIKey("embedding.api_key_env", cfg.Embedding.APIKeyEnv)
		if kerr != nil {
			return nil, kerr
		}
		embedder, err = embedding.NewOpenAIEmbedder(key, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimension)
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	if cfg.Embedding.RequestsPerSecond > 0 {
		embedder = embedding.NewRateLimitedEmbedder(embedder, cfg.Embedding.RequestsPerSecond)
	}
	return embedder, nil
}

// NewQueryEmbedder is NewEmbedder behind the query cache.
func NewQueryEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Retrieve.CacheSize <= 0 {
		return embedder, nil
	}
	return cache.NewCachedEmbedder(embedder, cache.NewEmbeddingCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)), nil
}

func NewGenerator(ctx context.Context, cfg *config.Config) (port.Generator, error) {
	key, err := config.RequireAPIKey("generation.api_key_env", cfg.Generation.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	var generator port.Generator
	switch cfg.Generation.Provider {
	case "gemini":
		generator, err = llm.NewGeminiGenerator(ctx, key, cfg.Generation.Model)
	case "openai":
		generator, err = llm.NewOpenAIGenerator(key, cfg.Generation.Model, cfg.Generation.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Generation.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return generator, nil
}

// NewIndex returns nil in local-only mode and a process-local index when
// index.url is memory://.
func NewIndex(cfg *config.Config) port.VectorIndex {
	if cfg.Index.Disabled {
		return nil
	}
	if cfg.Index.URL == memstore.URL {
		return memstore.NewMemoryIndex(cfg.Index.Collection)
	}
	return qdrant.NewClient(qdrant.Config{
		URL:        cfg.Index.URL,
		APIKey:     cfg.IndexAPIKey(),
		Collection: cfg.Index.Collection,
		Timeout:    cfg.Index.Timeout,
	})
}

func NewLocalStore(cfg *config.Config, dir string) port.LocalStore {
	return store.Open(cfg.LocalStorePath(dir), cfg)
}

func RetrieveOptions(cfg *config.Config) usecase.RetrieveOptions {
	return usecase.RetrieveOptions{
		TopK:             cfg.Retrieve.TopK,
		TextFilterFactor: cfg.Retrieve.TextFilterFactor,
		TextFilterMin:    cfg.Retrieve.TextFilterMin,
		MinScore:         cfg.Retrieve.MinScore,
	}
}

// App holds the query-side components shared by the CLI commands and tools.
type App struct {
	Config   *config.Config
	Logger   arbor.ILogger
	Dir      string
	Retrieve *usecase.RetrieveUseCase
	Index    port.VectorIndex // nil in local-only mode
	Local    port.LocalStore
}

// New wires the retrieval engine for the project rooted at dir.
func New(ctx context.Context, cfg *config.Config, dir string, logger arbor.ILogger) (*App, error) {
	embedder, err := NewQueryEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	index := NewIndex(cfg)
	local := NewLocalStore(cfg, dir)
	retrieve := usecase.NewRetrieveUseCase(
		embedder,
		index,
		retriever.NewLocalRetriever(local),
		retriever.NewDefaultKeywordScorer(),
		RetrieveOptions(cfg),
		logger,
	)

	logger.Debug().
		Str("embedding", cfg.Embedding.Provider+"/"+cfg.Embedding.Model).
		Bool("index", index != nil).
		Str("local_store", local.Path()).
		Msg("Retrieval engine ready")

	return &App{
		Config:   cfg,
		Logger:   logger,
		Dir:      dir,
		Retrieve: retrieve,
		Index:    index,
		Local:    local,
	}, nil
}

// NewChat adds generation on top of the retrieval engine.
func (a *App) NewChat(ctx context.Context) (*usecase.ChatUseCase, error) {
	generator, err := NewGenerator(ctx, a.Config)
	if err != nil {
		return nil, err
	}

	return usecase.NewChatUseCase(a.Retrieve, generator, usecase.ChatOptions{
		SystemPrompt: a.Config.Generation.SystemPrompt,
		Temperature:  a.Config.Generation.Temperature,
		TopK:         a.Config.Retrieve.TopK,
	}, a.Logger), nil
}

// SourceDirs resolves the configured source directories against the root.
func SourceDirs(cfg *config.Config, dir string) []string {
	dirs := make([]string, 0, len(cfg.Sources.Dirs))
	for _, d := range cfg.Sources.Dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(dir, d)
		}
		dirs = append(dirs, d)
	}
	return dirs
}
