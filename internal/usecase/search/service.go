package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/catalog"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
)

// Service answers free-text queries against one loaded catalog.
type Service struct {
	ranker  *Ranker
	catalog *catalog.Catalog
	embed   Embedder
	params  request.Params
	logger  *zap.Logger
}

// New creates a search service. params are the defaults used by Search.
func New(
	ranker *Ranker, cat *catalog.Catalog, embed Embedder,
	params request.Params, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ranker: ranker, catalog: cat, embed: embed, params: params, logger: logger}
}

// Params returns the default ranking parameters.
func (s *Service) Params() request.Params { return s.params }

// Catalog returns the catalog the service searches.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Search embeds the query and ranks the catalog with the default parameters.
func (s *Service) Search(ctx context.Context, query string) ([]result.Result, error) {
	return s.SearchWithParams(ctx, query, s.params)
}

// SearchWithParams embeds the query and ranks the catalog with explicit parameters.
// Zero matches is a successful empty result.
func (s *Service) SearchWithParams(
	ctx context.Context, query string, params request.Params,
) ([]result.Result, error) {
	results, err := s.search(ctx, query, params)

	status := metrics.SearchStatusMatch
	switch {
	case err != nil:
		status = metrics.SearchStatusError
	case len(results) == 0:
		status = metrics.SearchStatusNoMatch
	}
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()

	if err != nil {
		s.logger.Debug("Search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	metrics.SearchResults.Observe(float64(len(results)))
	return results, nil
}

func (s *Service) search(
	ctx context.Context, query string, params request.Params,
) ([]result.Result, error) {
	if err := request.ValidateQuery(query); err != nil {
		return nil, err
	}

	start := time.Now()
	embResult, err := s.embed.Embed(ctx, query)
	embedDuration := time.Since(start)
	metrics.SearchDuration.WithLabelValues("embed").Observe(embedDuration.Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrEmbedding) || errors.Is(err, domain.ErrDimensionMismatch) {
			return nil, fmt.Errorf("vectorize query: %w", err)
		}
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrEmbedding, err)
	}
	if len(embResult.Embedding) == 0 {
		return nil, fmt.Errorf("vectorize query: empty vector: %w", domain.ErrEmbedding)
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	start = time.Now()
	results, err := s.ranker.Rank(embResult.Embedding, s.catalog, params)
	rankDuration := time.Since(start)
	metrics.SearchDuration.WithLabelValues("rank").Observe(rankDuration.Seconds())
	if err != nil {
		return nil, fmt.Errorf("rank catalog: %w", err)
	}

	s.logger.Debug("Search completed",
		zap.String("query", query),
		zap.Float64("threshold", params.Threshold()),
		zap.Int("top_k", params.TopK()),
		zap.Int("results", len(results)),
		zap.Duration("embed_duration", embedDuration),
		zap.Duration("rank_duration", rankDuration),
	)
	return results, nil
}
