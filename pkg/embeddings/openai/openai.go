// Package openai implements embeddings.Embedder for OpenAI and
// OpenAI-compatible embedding APIs through langchaingo.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/papercomputeco/leo/pkg/embeddings"
	"github.com/papercomputeco/leo/pkg/logger"
	"github.com/papercomputeco/leo/pkg/vector"
)

// DefaultEmbeddingModel is used when no model is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// BaseURL overrides the API URL for OpenAI-compatible servers. Empty
	// uses api.openai.com.
	BaseURL string

	// APIKey is required by api.openai.com. Local servers that skip
	// authentication accept any value.
	APIKey string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Embedder wraps a langchaingo embedder.
type Embedder struct {
	embedder lcembeddings.Embedder
	model    string
	logger   *slog.Logger
}

// NewEmbedder creates an OpenAI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai embedder requires an api key or a base url")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	token := cfg.APIKey
	if token == "" {
		token = "none"
	}

	opts := []lcopenai.Option{
		lcopenai.WithToken(token),
		lcopenai.WithEmbeddingModel(model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}

	client, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(client, lcembeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Embedder{embedder: embedder, model: model, logger: log}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	e.logger.Debug("embedded text", "model", e.model, "dimensions", len(vec))
	return vec, nil
}

// Close is a no-op for the HTTP client.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
