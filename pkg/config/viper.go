package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/leo/pkg/dotdir"
)

// envAliases binds legacy environment variable names to config keys. The
// LEO_ prefixed name is listed first so it wins when both are set.
var envAliases = map[string][]string{
	"storage.postgres_dsn": {"LEO_STORAGE_POSTGRES_DSN", "DATABASE_URL"},
	"vector_store.api_key": {"LEO_VECTOR_STORE_API_KEY", "CHROMA_API_KEY"},
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), loads .env files and binds environment
// variables with the LEO_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (LEO_STORAGE_SQLITE_PATH, DATABASE_URL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. .env files never override variables already set in the process.
	envFiles := []string{".env"}
	if target != "" {
		envFiles = append(envFiles, filepath.Join(target, ".env"))
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	// 4. Environment variables: LEO_STORAGE_SQLITE_PATH, LEO_LOG_DEBUG, etc.
	v.SetEnvPrefix("LEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	return v, nil
}

// FromViper materializes the effective configuration held by v.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			PostgresDSN: v.GetString("storage.postgres_dsn"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			APIKey:     v.GetString("vector_store.api_key"),
			Tenant:     v.GetString("vector_store.tenant"),
			Database:   v.GetString("vector_store.database"),
			Collection: v.GetString("vector_store.collection"),
			Dimensions: v.GetUint("vector_store.dimensions"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			APIKey:     v.GetString("embedding.api_key"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		Indexer: IndexerConfig{
			Workers:    v.GetUint("indexer.workers"),
			QueueSize:  v.GetUint("indexer.queue_size"),
			MaxRetries: v.GetUint("indexer.max_retries"),
			Timeout:    v.GetString("indexer.timeout"),
		},
		Log: LogConfig{
			Debug:  v.GetBool("log.debug"),
			JSON:   v.GetBool("log.json"),
			Pretty: v.GetBool("log.pretty"),
			File:   v.GetString("log.file"),
		},
	}

	if cfg.VectorStore.Provider == "" && cfg.VectorStore.APIKey != "" {
		cfg.VectorStore.Provider = defaultVectorProvider
	}

	return cfg
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for key, info := range configKeys {
		v.SetDefault(key, info.get(d))
	}
}
