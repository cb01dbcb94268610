// Package storecmd wires the storage flags shared by every leo command that
// opens the database.
package storecmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/cmd/leo/sqlitepath"
	"github.com/papercomputeco/leo/pkg/auth"
	"github.com/papercomputeco/leo/pkg/config"
	"github.com/papercomputeco/leo/pkg/logger"
	"github.com/papercomputeco/leo/pkg/storage"
	storageutils "github.com/papercomputeco/leo/pkg/storage/utils"
)

// Flags holds the values of the registered storage flags. Viper reads them
// back through BindRegisteredFlags, so the fields are only flag targets.
type Flags struct {
	postgres          string
	sqlite            string
	vectorProvider    string
	vectorTarget      string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	indexerWorkers    uint
}

// Register adds the storage flags to cmd.
func Register(cmd *cobra.Command) *Flags {
	f := &Flags{}
	fs := config.StorageFlags
	config.AddStringFlag(cmd, fs, config.FlagPostgres, &f.postgres)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &f.sqlite)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreProv, &f.vectorProvider)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreTgt, &f.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &f.embeddingProvider)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &f.embeddingTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &f.embeddingModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &f.embeddingDims)
	config.AddUintFlag(cmd, fs, config.FlagIndexerWorkers, &f.indexerWorkers)
	return f
}

// Store is an initialized driver together with the configuration and
// logger it was built from.
type Store struct {
	Driver  storage.Driver
	Config  *config.Config
	Logger  *slog.Logger
	Backend string

	closeLog func() error
}

// Close releases the driver and the log file, if any.
func (s *Store) Close() error {
	return errors.Join(s.Driver.Close(), s.closeLog())
}

// LoadConfig resolves the effective configuration for cmd: flags, then
// environment, then config.toml, then defaults.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.StorageFlags, config.StorageFlagKeys)

	cfg := config.FromViper(v)
	if cfg.Storage.PostgresDSN == "" {
		cfg.Storage.SQLitePath = sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath)
	}
	return cfg, nil
}

// NewLogger builds the command logger. Logs go to stderr so command output
// stays pipeable. With log.file set, records are also appended to that file
// as JSON; the returned func closes it.
func NewLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, func() error, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	level := logger.WithDebug(debug || cfg.Log.Debug)

	console := logger.New(
		level,
		logger.WithPretty(cfg.Log.Pretty),
		logger.WithJSON(cfg.Log.JSON),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
	if cfg.Log.File == "" {
		return console, func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(level, logger.WithJSON(true), logger.WithSource(true), logger.WithWriter(f))
	return logger.Multi(console, file), f.Close, nil
}

// Open loads the configuration, builds the selected driver and initializes
// it. The caller must Close the returned store.
func Open(ctx context.Context, cmd *cobra.Command) (*Store, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := NewLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	opts := storageutils.OptsFromConfig(cfg, auth.HashPassword, log)
	opts.OnIndexError = func(e storage.IndexWriteError) {
		log.Warn("search index write failed", "op", e.Op, "doc_id", e.DocID, "error", e.Err)
	}

	backend := storageutils.Backend(opts)
	if backend == storageutils.BackendInMemory {
		log.Warn("no database configured, changes will not persist; pass --sqlite or --postgres")
	}

	driver, err := storageutils.NewDriver(ctx, opts)
	if err != nil {
		closeLog()
		return nil, err
	}

	if err := driver.Initialize(ctx); err != nil {
		driver.Close()
		closeLog()
		return nil, fmt.Errorf("initializing %s storage: %w", backend, err)
	}

	log.Debug("storage ready", "backend", backend)

	return &Store{
		Driver:  driver,
		Config:  cfg,
		Logger:  log,
		Backend: backend,

		closeLog: closeLog,
	}, nil
}
