// Package migratecmder provides the migrate command, which moves a user's
// unscoped URLs and chat history into a profile and turns pro mode on.
package migratecmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/cmd/leo/storecmd"
	"github.com/papercomputeco/leo/pkg/cliui"
	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
)

const migrateLongDesc string = `Copy a user's URLs and chat messages into a profile and enable pro mode.

Rows already copied by an earlier run are skipped, so the command is safe
to repeat. Use --keep-mode to copy without touching pro mode.

Examples:
  leo migrate alex --profile 1
  leo migrate alex --profile 2 --keep-mode`

const migrateShortDesc string = "Migrate a user's data into a profile"

type migrateCommander struct {
	profileID int64
	keepMode  bool
	out       io.Writer
}

func NewMigrateCmd() *cobra.Command {
	cmder := &migrateCommander{}

	cmd := &cobra.Command{
		Use:   "migrate <username>",
		Short: migrateShortDesc,
		Long:  migrateLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmder.profileID <= 0 {
				return fmt.Errorf("--profile must be a positive id, got %d", cmder.profileID)
			}
			cmder.out = cmd.OutOrStdout()

			ctx := cmd.Context()
			store, err := storecmd.Open(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			return cmder.run(ctx, store.Driver, args[0])
		},
	}

	cmd.Flags().Int64VarP(&cmder.profileID, "profile", "p", 0, "Profile id to migrate into")
	cmd.Flags().BoolVar(&cmder.keepMode, "keep-mode", false, "Leave pro mode unchanged")
	_ = cmd.MarkFlagRequired("profile")
	storecmd.Register(cmd)

	return cmd
}

func (c *migrateCommander) run(ctx context.Context, driver storage.Driver, username string) error {
	user, err := driver.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}

	var copied model.ContextCounts
	err = cliui.Step(c.out, fmt.Sprintf("Copying data into profile %d", c.profileID), func() error {
		copied, err = driver.MigrateDataToContext(ctx, user.ID, c.profileID)
		return err
	})
	if err != nil {
		return err
	}

	if !c.keepMode && !user.ProMode {
		err = cliui.Step(c.out, "Enabling pro mode", func() error {
			_, err := driver.SetProMode(ctx, user.ID, true)
			return err
		})
		if err != nil {
			return err
		}
	}

	visible, err := driver.LoadContextData(ctx, user.ID, c.profileID)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	cliui.KeyValue(c.out, "Copied:  ", fmt.Sprintf("%d urls, %d messages", copied.URLs, copied.Messages))
	cliui.KeyValue(c.out, "Profile: ", fmt.Sprintf("%d urls, %d messages", visible.URLs, visible.Messages))
	fmt.Fprintln(c.out)
	return nil
}
