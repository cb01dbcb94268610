// Package initcmder provides the init command for initializing a local .leo
// directory with a config.toml.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/cmd/leo/sqlitepath"
	"github.com/papercomputeco/leo/pkg/cliui"
	"github.com/papercomputeco/leo/pkg/config"
	"github.com/papercomputeco/leo/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .leo/ directory in the current working directory.

Creates a local .leo/ directory that takes precedence over ~/.leo/ and writes
a config.toml pointing storage at a SQLite database inside it.

Use --preset to start from a search preset (local, chroma, qdrant, openai)
or from a config.toml served over HTTP. An existing config.toml is only
replaced when --preset is given.

Examples:
  leo init
  leo init --preset local
  leo init --preset https://example.com/leo/config.toml`

const initShortDesc string = "Initialize a local .leo/ directory"

const remoteTimeout = 10 * time.Second

type initCommander struct {
	preset    string
	configDir string
	out       io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Config preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	dir := c.configDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dotdir.DirName)
	}

	cfg, err := c.resolvePreset(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .leo directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, statErr := os.Stat(cfger.GetTarget())
	exists := statErr == nil
	if exists && c.preset == "" {
		fmt.Fprintf(c.out, "  %s Already initialized: %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
		return nil
	}

	fillLocalPaths(cfg, dir)

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	verb := "Initialized"
	if exists {
		verb = "Reinitialized"
	}
	fmt.Fprintf(c.out, "  %s %s %s\n", cliui.SuccessMark, verb, cliui.DimStyle.Render(dir))
	cliui.KeyValue(c.out, "storage.sqlite_path", cfg.Storage.SQLitePath)
	cliui.KeyValue(c.out, "vector_store.provider", cfg.VectorStore.Provider)
	return nil
}

func (c *initCommander) resolvePreset(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchRemoteConfig(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

// fillLocalPaths points file-backed stores at the .leo directory unless the
// preset already names a location.
func fillLocalPaths(cfg *config.Config, dir string) {
	if cfg.Storage.PostgresDSN == "" && cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(dir, sqlitepath.DefaultFile)
	}

	if cfg.VectorStore.Target != "" {
		return
	}
	switch cfg.VectorStore.Provider {
	case "sqlite-vec":
		cfg.VectorStore.Target = filepath.Join(dir, "vectors.sqlite")
	case "chromem":
		cfg.VectorStore.Target = filepath.Join(dir, "vectors")
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("fetching remote config: empty body")
	}

	return config.ParseConfigTOML(data)
}
