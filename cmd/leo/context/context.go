// Package contextcmder provides commands for reading and appending versioned
// user contexts.
package contextcmder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/cmd/leo/storecmd"
	"github.com/papercomputeco/leo/pkg/cliui"
	"github.com/papercomputeco/leo/pkg/storage"
)

const contextLongDesc string = `Read and update a user's context.

Every update appends a new snapshot with the next version number. Older
snapshots are kept.

Examples:
  leo context show alex
  leo context set alex '{"goals":["ship v1"]}'
  cat context.json | leo context set alex -`

const contextShortDesc string = "Read and update user contexts"

func NewContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: contextShortDesc,
		Long:  contextLongDesc,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newSetCmd())

	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <username>",
		Short: "Print the current context of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			w := cmd.OutOrStdout()
			uc, err := store.Driver.GetUserContext(ctx, user.ID)
			if storage.IsNotFound(err) {
				fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("No context saved for "+user.Username))
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(w)
			cliui.KeyValue(w, "Version:     ", strconv.Itoa(uc.Version))
			cliui.KeyValue(w, "Last updated:", uc.LastUpdated.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintln(w)
			return writeIndented(w, uc.Context)
		},
	}

	storecmd.Register(cmd)

	return cmd
}

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <username> <json|->",
		Short: "Append a new context snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(args[1])
			if args[1] == "-" {
				var err error
				payload, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
			}

			payload = bytes.TrimSpace(payload)
			if !json.Valid(payload) {
				return errors.New("context must be valid JSON")
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

			uc, err := store.Driver.UpdateUserContext(ctx, user.ID, payload)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s Saved context for %s %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(user.Username),
				cliui.DimStyle.Render(fmt.Sprintf("(version %d)", uc.Version)),
			)
			return nil
		},
	}

	storecmd.Register(cmd)

	return cmd
}

func writeIndented(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "  ", "  "); err != nil {
		return fmt.Errorf("formatting context: %w", err)
	}
	fmt.Fprintf(w, "  %s\n\n", buf.String())
	return nil
}
