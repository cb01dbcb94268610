// Package usercmder provides commands for managing leo accounts.
package usercmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const userLongDesc string = `Manage leo accounts.

Passwords are read from stdin when it is piped, otherwise they are
prompted for without echo. They are hashed before they reach storage.

Examples:
  leo user add sam
  echo "s3cret" | leo user add sam --admin
  leo user role sam admin
  leo user verify sam`

const userShortDesc string = "Manage leo accounts"

func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: userShortDesc,
		Long:  userLongDesc,
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newRoleCmd())
	cmd.AddCommand(newVerifyCmd())

	return cmd
}

// readPassword reads one line from piped input, or prompts on a terminal.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}

	return readLine(in)
}

func readLine(in io.Reader) (string, error) {
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
