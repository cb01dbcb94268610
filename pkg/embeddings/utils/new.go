// Package embeddingutils builds an embeddings.Embedder from configuration.
package embeddingutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/leo/pkg/embeddings"
	"github.com/papercomputeco/leo/pkg/embeddings/ollama"
	"github.com/papercomputeco/leo/pkg/embeddings/openai"
)

// Supported providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Logger       *slog.Logger
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case ProviderOllama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Logger:  o.Logger,
		})
	case ProviderOpenAI:
		return openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL: o.TargetURL,
			APIKey:  o.APIKey,
			Model:   o.Model,
			Logger:  o.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
