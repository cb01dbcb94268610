package config

const (
	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultVectorCollection = "leo"

	defaultIndexerWorkers    = 4
	defaultIndexerQueueSize  = 256
	defaultIndexerMaxRetries = 3
	defaultIndexerTimeout    = "10s"

	// defaultVectorProvider is used when an API key is configured without
	// naming a provider, matching deployments that only set CHROMA_API_KEY.
	defaultVectorProvider = "chroma"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		VectorStore: VectorStoreConfig{
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Indexer: IndexerConfig{
			Workers:    defaultIndexerWorkers,
			QueueSize:  defaultIndexerQueueSize,
			MaxRetries: defaultIndexerMaxRetries,
			Timeout:    defaultIndexerTimeout,
		},
		Log: LogConfig{
			Pretty: true,
		},
	}
}
