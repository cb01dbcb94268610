package usercmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/cmd/leo/storecmd"
	"github.com/papercomputeco/leo/pkg/cliui"
	"github.com/papercomputeco/leo/pkg/model"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "role <username> <user|admin>",
		Short:     "Change the role of an account",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(model.RoleUser), string(model.RoleAdmin)},
		RunE: func(cmd *cobra.Command, args []string) error {
			role := model.Role(args[1])
			if !role.Valid() {
				return fmt.Errorf("invalid role %q (expected %s or %s)", args[1], model.RoleUser, model.RoleAdmin)
			}

			ctx := cmd.Context()
			store, err := storecmd.Open(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.Driver.GetUserByUsername(ctx, args[0])
			if err != nil {
				return err
			}

			user, err = store.Driver.UpdateUserRole(ctx, user.ID, role)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s is now %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(user.Username),
				cliui.ValueStyle.Render(string(user.Role)),
			)
			return nil
		},
	}

	storecmd.Register(cmd)

	return cmd
}
