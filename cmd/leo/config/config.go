// Package configcmder provides the config command for managing persistent
// leo configuration stored in the .leo/ directory.
package configcmder

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/pkg/config"
)

const configLongDesc string = `Manage persistent leo configuration.

Configuration is stored as config.toml in the .leo/ directory and provides
default values for command flags. CLI flags and LEO_ environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.postgres_dsn, storage.sqlite_path,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  indexer.workers, indexer.timeout, log.debug

Use subcommands to get, set, or list configuration values:
  leo config set <key> <value>    Set a configuration value
  leo config get <key>            Get a configuration value
  leo config list                 List all configuration values

Examples:
  leo config set storage.sqlite_path ~/.leo/leo.sqlite
  leo config set vector_store.provider chromem
  leo config get embedding.model
  leo config list`

const configShortDesc string = "Manage persistent leo configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// masked hides credentials in command output.
func masked(key, value string) string {
	if value == "" {
		return value
	}
	if strings.HasSuffix(key, ".api_key") || key == "storage.postgres_dsn" {
		return "********"
	}
	return value
}
