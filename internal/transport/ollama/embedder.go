// Package ollama embeds text with a local Ollama server through langchaingo.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
)

const providerName = "ollama"

// Config holds the Ollama embedding settings.
type Config struct {
	ServerURL  string // e.g. http://localhost:11434
	Model      string // e.g. all-minilm
	Dimensions int    // expected vector length; 0 accepts any
	Logger     *zap.Logger
}

// queryEmbedder is the slice of langchaingo's embeddings.Embedder used here.
type queryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Embedder implements domain.Embedder on top of langchaingo.
type Embedder struct {
	embedder   queryEmbedder
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewEmbedder creates the Ollama client. Fails if the client cannot be configured.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.ServerURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w: %w", domain.ErrEmbedding, err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w: %w", domain.ErrEmbedding, err)
	}

	return newEmbedder(emb, cfg), nil
}

func newEmbedder(inner queryEmbedder, cfg *Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		embedder:   inner,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}
}

// Embed implements domain.Embedder. Ollama does not report token usage.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if text == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("empty text: %w", domain.ErrEmbedding)
	}

	start := time.Now()
	vec, err := e.embedder.EmbedQuery(ctx, text)
	duration := time.Since(start)

	if err != nil {
		e.recordError("api_error")
		e.logger.Debug("Ollama embedding failed",
			zap.String("model", e.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("ollama embed: %w: %w", domain.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		e.recordError("empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("ollama returned an empty vector: %w", domain.ErrEmbedding)
	}
	if e.dimensions > 0 && len(vec) != e.dimensions {
		e.recordError("dimension_mismatch")
		return domain.EmbeddingResult{}, domain.NewDimensionMismatch("query", e.dimensions, len(vec))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())

	return domain.EmbeddingResult{Embedding: vec}, nil
}

func (e *Embedder) recordError(errorType string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, errorType).Inc()
}
