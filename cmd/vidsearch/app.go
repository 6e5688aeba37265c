package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/config"
	"github.com/kailas-cloud/vidsearch/internal/db"
	dbBadger "github.com/kailas-cloud/vidsearch/internal/db/badger"
	dbRedis "github.com/kailas-cloud/vidsearch/internal/db/redis"
	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/catalog"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/metric"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/scoring"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
	catalogrepo "github.com/kailas-cloud/vidsearch/internal/repository/catalog"
	"github.com/kailas-cloud/vidsearch/internal/repository/embcache"
	ollamaEmb "github.com/kailas-cloud/vidsearch/internal/transport/ollama"
	openaiEmb "github.com/kailas-cloud/vidsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vidsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vidsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vidsearch/internal/usecase/search"
)

// app is the composition root shared by the search and repl commands.
type app struct {
	catalog  *catalog.Catalog
	embedder domain.Embedder
	cache    db.Store
	search   *searchuc.Service
	health   *healthuc.Service
}

// newApp loads the catalog once, builds the embedder chain and the search service.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	cache, err := openCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg, cache, logger)
	if err != nil {
		closeStore(cache)
		return nil, err
	}

	svc, err := buildSearchService(cfg.Search, cat, embedder, logger)
	if err != nil {
		closeStore(cache)
		return nil, err
	}

	// Pass nil interface (not typed nil) when no cache is configured.
	var pinger healthuc.CachePinger
	if cache != nil {
		pinger = cache
	}
	var checker healthuc.EmbeddingChecker
	if hc, ok := embedder.(domain.HealthChecker); ok {
		checker = hc
	}
	health := healthuc.New(cat.Len(), pinger, checker)

	logger.Info("Search ready",
		zap.Int("catalog_items", cat.Len()),
		zap.Int("dimension", cat.Dimension()),
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.String("metric", cfg.Search.Metric),
		zap.Float64("threshold", svc.Params().Threshold()),
		zap.Int("top_k", svc.Params().TopK()),
		zap.String("cache", cfg.Cache.Driver),
	)

	return &app{
		catalog:  cat,
		embedder: embedder,
		cache:    cache,
		search:   svc,
		health:   health,
	}, nil
}

func (a *app) Close() {
	closeStore(a.cache)
}

func closeStore(s db.Store) {
	if s != nil {
		s.Close()
	}
}

func loadCatalog(ctx context.Context, cfg config.Config, logger *zap.Logger) (*catalog.Catalog, error) {
	loader := catalogrepo.NewLoader(catalogrepo.Config{
		Path:             cfg.Catalog.Path,
		TitleColumn:      cfg.Catalog.TitleColumn,
		VideoIDColumn:    cfg.Catalog.VideoIDColumn,
		Layout:           catalogrepo.Layout(cfg.Catalog.Layout),
		TitlePrefix:      cfg.Catalog.TitlePrefix,
		TranscriptPrefix: cfg.Catalog.TranscriptPrefix,
		TitleOffset:      cfg.Catalog.TitleOffset,
		TranscriptOffset: cfg.Catalog.TranscriptOffset,
		Dimensions:       cfg.Embedding.Dimensions,
	}, metrics.CatalogItems, logger)

	cat, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// openCache returns nil when caching is disabled.
func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case config.CacheRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		timeout := time.Duration(cfg.Redis.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis cache not ready: %w", err)
		}
		logger.Info("Connected to redis cache", zap.Strings("addrs", cfg.Redis.Addrs))
		return store, nil
	case config.CacheBadger:
		store, err := dbBadger.Open(dbBadger.Config{Path: cfg.Badger.Path, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("open badger cache: %w", err)
		}
		logger.Info("Opened badger cache", zap.String("path", cfg.Badger.Path))
		return store, nil
	default:
		return nil, nil
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction.
func buildEmbedder(cfg config.Config, cache db.Store, logger *zap.Logger) (domain.Embedder, error) {
	ec := cfg.Embedding

	// Base provider (with transport metrics built-in)
	var base domain.Embedder
	switch ec.Provider {
	case config.ProviderOpenAI:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:         ec.APIKey,
			BaseURL:        ec.BaseURL,
			Model:          ec.Model,
			Dimensions:     ec.Dimensions,
			SendDimensions: ec.SendDimensions,
			Provider:       ec.Provider,
			Logger:         logger,
		})
	case config.ProviderOllama:
		emb, err := ollamaEmb.NewEmbedder(&ollamaEmb.Config{
			ServerURL:  ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}
		base = emb
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}

	// Cached
	embedder := base
	if cache != nil {
		embedder = embcache.New(base, cache, embcache.Config{
			Model:      ec.Provider + "/" + ec.Model,
			TTL:        time.Duration(cfg.Cache.TTLHours) * time.Hour,
			CacheTotal: metrics.EmbeddingCacheTotal,
		}, logger)
	}

	// Instrumented (logging + latency)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, logger)

	// Instruction prefix (outermost, so the cache key includes the instruction)
	if ec.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
	}

	return embedder, nil
}

func buildSearchService(
	sc config.SearchConfig, cat *catalog.Catalog, embedder domain.Embedder, logger *zap.Logger,
) (*searchuc.Service, error) {
	combiner, err := scoring.New(scoring.Kind(sc.Combiner), sc.TitleWeight, sc.TranscriptWeight)
	if err != nil {
		return nil, fmt.Errorf("build combiner: %w", err)
	}
	ranker, err := searchuc.NewRanker(metric.Metric(sc.Metric), combiner)
	if err != nil {
		return nil, fmt.Errorf("build ranker: %w", err)
	}
	params, err := request.NewParams(sc.Threshold, sc.TopK)
	if err != nil {
		return nil, fmt.Errorf("default search params: %w", err)
	}
	return searchuc.New(ranker, cat, embedder, params, logger), nil
}
