package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent leo configuration stored as config.toml
// in the .leo/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Indexer     IndexerConfig     `toml:"indexer"`
	Log         LogConfig         `toml:"log"`
}

// StorageConfig selects the primary backend. A PostgreSQL DSN wins over a
// SQLite path; with neither, leo runs in memory.
type StorageConfig struct {
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
}

// VectorStoreConfig holds vector store settings. An empty provider disables
// search indexing.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Tenant     string `toml:"tenant,omitempty"`
	Database   string `toml:"database,omitempty"`
	Collection string `toml:"collection,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// IndexerConfig tunes the background worker pool that mirrors writes into
// the vector store.
type IndexerConfig struct {
	Workers    uint   `toml:"workers,omitempty"`
	QueueSize  uint   `toml:"queue_size,omitempty"`
	MaxRetries uint   `toml:"max_retries,omitempty"`
	Timeout    string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout. An empty value yields zero.
func (c IndexerConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Timeout)
}

// LogConfig holds logger settings.
type LogConfig struct {
	Debug  bool `toml:"debug,omitempty"`
	JSON   bool `toml:"json,omitempty"`
	Pretty bool `toml:"pretty,omitempty"`

	// File, when set, also receives every record as JSON.
	File string `toml:"file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.api_key":    stringKey(func(c *Config) *string { return &c.VectorStore.APIKey }),
	"vector_store.tenant":     stringKey(func(c *Config) *string { return &c.VectorStore.Tenant }),
	"vector_store.database":   stringKey(func(c *Config) *string { return &c.VectorStore.Database }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.dimensions": uintKey("vector_store.dimensions", func(c *Config) *uint { return &c.VectorStore.Dimensions }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"indexer.workers":     uintKey("indexer.workers", func(c *Config) *uint { return &c.Indexer.Workers }),
	"indexer.queue_size":  uintKey("indexer.queue_size", func(c *Config) *uint { return &c.Indexer.QueueSize }),
	"indexer.max_retries": uintKey("indexer.max_retries", func(c *Config) *uint { return &c.Indexer.MaxRetries }),
	"indexer.timeout": {
		get: func(c *Config) string { return c.Indexer.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for indexer.timeout: %w", err)
			}
			c.Indexer.Timeout = v
			return nil
		},
	},

	"log.debug":  boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),
	"log.json":   boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.pretty": boolKey("log.pretty", func(c *Config) *bool { return &c.Log.Pretty }),
	"log.file":   stringKey(func(c *Config) *string { return &c.Log.File }),
}
