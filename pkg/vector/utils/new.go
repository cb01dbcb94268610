// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/leo/pkg/vector"
	"github.com/papercomputeco/leo/pkg/vector/chroma"
	"github.com/papercomputeco/leo/pkg/vector/chromem"
	"github.com/papercomputeco/leo/pkg/vector/qdrant"
	"github.com/papercomputeco/leo/pkg/vector/sqlitevec"
)

// Supported providers.
const (
	ProviderChroma    = "chroma"
	ProviderChromem   = "chromem"
	ProviderQdrant    = "qdrant"
	ProviderSQLiteVec = "sqlite-vec"
)

// NewVectorDriverOpts carries the vector_store configuration section.
type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is the server URL for chroma, the gRPC address for qdrant,
	// the database file for sqlite-vec and the persist directory for
	// chromem.
	TargetURL string

	APIKey     string
	Tenant     string
	Database   string
	Collection string
	Dimensions uint

	Logger *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			APIKey:         o.APIKey,
			Tenant:         o.Tenant,
			Database:       o.Database,
			CollectionName: o.Collection,
		}, o.Logger)
	case ProviderChromem:
		return chromem.NewDriver(chromem.Config{
			PersistPath:      o.TargetURL,
			CollectionPrefix: o.Collection,
		}, o.Logger)
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			Addr:           o.TargetURL,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case ProviderSQLiteVec:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
