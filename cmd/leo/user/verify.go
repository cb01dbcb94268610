package usercmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/cmd/leo/storecmd"
	"github.com/papercomputeco/leo/pkg/auth"
	"github.com/papercomputeco/leo/pkg/cliui"
	"github.com/papercomputeco/leo/pkg/storage"
)

// ErrBadCredentials is returned when the password does not match.
var ErrBadCredentials = errors.New("invalid username or password")

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <username>",
		Short: "Check a password against the stored hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, fmt.Sprintf("Password for %s: ", args[0]))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := storecmd.Open(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.Driver.GetUserByUsername(ctx, args[0])
			if storage.IsNotFound(err) {
				store.Logger.Debug("verify failed", "username", args[0], "error", err)
				return ErrBadCredentials
			}
			if err != nil {
				return err
			}

			ok, err := auth.ComparePasswords(password, user.Password)
			if err != nil {
				return fmt.Errorf("comparing passwords: %w", err)
			}
			if !ok {
				return ErrBadCredentials
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s Password matches for %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(user.Username),
			)
			return nil
		},
	}

	storecmd.Register(cmd)

	return cmd
}
