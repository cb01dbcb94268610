// Package leocmder
package leocmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/leo/cmd/leo/config"
	contextcmder "github.com/papercomputeco/leo/cmd/leo/context"
	initcmder "github.com/papercomputeco/leo/cmd/leo/init"
	migratecmder "github.com/papercomputeco/leo/cmd/leo/migrate"
	searchcmder "github.com/papercomputeco/leo/cmd/leo/search"
	statscmder "github.com/papercomputeco/leo/cmd/leo/stats"
	usercmder "github.com/papercomputeco/leo/cmd/leo/user"
	versioncmder "github.com/papercomputeco/leo/cmd/leo/version"
)

const leoLongDesc string = `Leo keeps each user's saved links, chat history, questions and
context in one store.

Storage is PostgreSQL when a DSN is configured, SQLite when a database path
is configured, and memory otherwise. Configure a vector store to enable
search.

Get started:
  leo init                     Create .leo/config.toml
  leo user add <username>      Create an account
  leo stats                    Show every account and its data`

const leoShortDesc string = "Leo - personal knowledge store"

func NewLeoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "leo",
		Short:        leoShortDesc,
		Long:         leoLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .leo/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(usercmder.NewUserCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(migratecmder.NewMigrateCmd())
	cmd.AddCommand(contextcmder.NewContextCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
