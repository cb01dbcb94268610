// Package storageutils selects and assembles the storage.Driver used by the
// process. Selection happens once; there is no runtime re-selection.
package storageutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/leo/pkg/config"
	embeddingutils "github.com/papercomputeco/leo/pkg/embeddings/utils"
	"github.com/papercomputeco/leo/pkg/logger"
	"github.com/papercomputeco/leo/pkg/storage"
	"github.com/papercomputeco/leo/pkg/storage/indexed"
	"github.com/papercomputeco/leo/pkg/storage/inmemory"
	"github.com/papercomputeco/leo/pkg/storage/postgres"
	"github.com/papercomputeco/leo/pkg/storage/sqldriver"
	"github.com/papercomputeco/leo/pkg/storage/sqlite"
	vectorutils "github.com/papercomputeco/leo/pkg/vector/utils"
)

// Backend names reported by Backend.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendInMemory = "inmemory"
)

type NewDriverOpts struct {
	// PostgresDSN selects PostgreSQL when set.
	PostgresDSN string

	// SQLitePath selects SQLite when set and no DSN is given.
	SQLitePath string

	// VectorStore enables the search index when its provider is set.
	VectorStore config.VectorStoreConfig
	Embedding   config.EmbeddingConfig
	Indexer     config.IndexerConfig

	// Hasher seeds the demo account during Initialize.
	Hasher storage.PasswordHasher

	// OnIndexError observes failed index writes.
	OnIndexError func(storage.IndexWriteError)

	Logger *slog.Logger
}

// OptsFromConfig maps a loaded configuration onto NewDriverOpts.
func OptsFromConfig(cfg *config.Config, hasher storage.PasswordHasher, log *slog.Logger) *NewDriverOpts {
	return &NewDriverOpts{
		PostgresDSN: cfg.Storage.PostgresDSN,
		SQLitePath:  cfg.Storage.SQLitePath,
		VectorStore: cfg.VectorStore,
		Embedding:   cfg.Embedding,
		Indexer:     cfg.Indexer,
		Hasher:      hasher,
		Logger:      log,
	}
}

// Backend names the primary backend o selects.
func Backend(o *NewDriverOpts) string {
	switch {
	case o.PostgresDSN != "":
		return BackendPostgres
	case o.SQLitePath != "":
		return BackendSQLite
	default:
		return BackendInMemory
	}
}

// NewDriver builds the primary driver and, when a vector store provider is
// configured, wraps it with the search index. The caller must Initialize
// the returned driver.
func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	sqlOpts := []sqldriver.Option{
		sqldriver.WithPasswordHasher(o.Hasher),
		sqldriver.WithLogger(log),
	}

	var (
		driver storage.Driver
		err    error
	)
	backend := Backend(o)
	switch backend {
	case BackendPostgres:
		driver, err = postgres.NewDriver(ctx, o.PostgresDSN, sqlOpts...)
	case BackendSQLite:
		driver, err = sqlite.NewDriver(ctx, o.SQLitePath, sqlOpts...)
	default:
		driver = inmemory.NewDriver(o.Hasher)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s storage driver: %w", backend, err)
	}

	log.Debug("storage backend selected", "backend", backend)

	if o.VectorStore.Provider == "" {
		return driver, nil
	}

	wrapped, err := withIndex(ctx, driver, o, log)
	if err != nil {
		driver.Close()
		return nil, err
	}
	return wrapped, nil
}

func withIndex(ctx context.Context, driver storage.Driver, o *NewDriverOpts, log *slog.Logger) (*indexed.Driver, error) {
	timeout, err := o.Indexer.TimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid indexer timeout %q: %w", o.Indexer.Timeout, err)
	}

	dimensions := o.VectorStore.Dimensions
	if dimensions == 0 {
		dimensions = o.Embedding.Dimensions
	}

	vectors, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: o.VectorStore.Provider,
		TargetURL:    o.VectorStore.Target,
		APIKey:       o.VectorStore.APIKey,
		Tenant:       o.VectorStore.Tenant,
		Database:     o.VectorStore.Database,
		Collection:   o.VectorStore.Collection,
		Dimensions:   dimensions,
		Logger:       log.With("component", "vector"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: o.Embedding.Provider,
		TargetURL:    o.Embedding.Target,
		Model:        o.Embedding.Model,
		APIKey:       o.Embedding.APIKey,
		Logger:       log.With("component", "embedder"),
	})
	if err != nil {
		vectors.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	d, err := indexed.New(driver, indexed.Config{
		Vectors:      vectors,
		Embedder:     embedder,
		Workers:      o.Indexer.Workers,
		QueueSize:    o.Indexer.QueueSize,
		MaxRetries:   o.Indexer.MaxRetries,
		Timeout:      timeout,
		OnIndexError: o.OnIndexError,
		Logger:       log,
	})
	if err != nil {
		vectors.Close()
		embedder.Close()
		return nil, err
	}

	log.Info("search index enabled",
		"vector_store", o.VectorStore.Provider,
		"embedding", o.Embedding.Provider,
		"indexer_timeout", timeout.String(),
	)
	return d, nil
}

