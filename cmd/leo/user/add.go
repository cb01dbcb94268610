package usercmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/cmd/leo/storecmd"
	"github.com/papercomputeco/leo/pkg/auth"
	"github.com/papercomputeco/leo/pkg/cliui"
	"github.com/papercomputeco/leo/pkg/model"
)

type addCommander struct {
	admin bool
}

func newAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&cmder.admin, "admin", false, "Grant the admin role")
	storecmd.Register(cmd)

	return cmd
}

func (c *addCommander) run(ctx context.Context, cmd *cobra.Command, username string) error {
	password, err := readPassword(cmd, fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		return err
	}

	// Validate before hashing so an empty password fails fast.
	in := model.NewUser{Username: username, Password: password}
	if err := in.Validate(); err != nil {
		return err
	}

	in.Password, err = auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	store, err := storecmd.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.Driver.CreateUser(ctx, in)
	if err != nil {
		return err
	}

	if c.admin {
		user, err = store.Driver.UpdateUserRole(ctx, user.ID, model.RoleAdmin)
		if err != nil {
			return err
		}
	}

	store.Logger.Debug("user created", "user_id", user.ID, "role", user.Role)

	fmt.Fprintf(cmd.OutOrStdout(), "  %s Created %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(user.Username),
		cliui.DimStyle.Render(fmt.Sprintf("(id %d, %s)", user.ID, user.Role)),
	)
	return nil
}
