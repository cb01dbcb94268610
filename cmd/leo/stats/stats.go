// Package statscmder provides the stats command, an admin overview of every
// account and how much it stores.
package statscmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/cmd/leo/storecmd"
	"github.com/papercomputeco/leo/pkg/cliui"
	"github.com/papercomputeco/leo/pkg/model"
)

const statsLongDesc string = `Show every account with its URL, chat message and question counts.

Counts are read from a single snapshot of the database.

Examples:
  leo stats
  leo stats --sqlite ./leo.sqlite
  leo stats --json`

const statsShortDesc string = "Show per-user storage statistics"

type statsCommander struct {
	json bool
}

type statsRow struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	ProMode   bool       `json:"proMode"`
	URLs      int        `json:"urlCount"`
	Messages  int        `json:"messageCount"`
	Questions int        `json:"questionCount"`
}

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := storecmd.Open(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Driver.GetAllUsersWithStats(ctx)
			if err != nil {
				return err
			}

			if cmder.json {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			writeTable(cmd.OutOrStdout(), store.Backend, stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print stats as JSON")
	storecmd.Register(cmd)

	return cmd
}

func writeJSON(w io.Writer, stats []model.UserStats) error {
	rows := make([]statsRow, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, statsRow{
			ID:        s.User.ID,
			Username:  s.User.Username,
			Role:      s.User.Role,
			ProMode:   s.User.ProMode,
			URLs:      s.URLCount,
			Messages:  s.MessageCount,
			Questions: s.QuestionCount,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeTable(w io.Writer, backend string, stats []model.UserStats) {
	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Backend:"),
		cliui.ValueStyle.Render(backend),
	)

	rows := make([][]string, 0, len(stats))
	var urls, messages, questions int
	for _, s := range stats {
		pro := ""
		if s.User.ProMode {
			pro = "on"
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.User.ID, 10),
			s.User.Username,
			string(s.User.Role),
			pro,
			strconv.Itoa(s.URLCount),
			strconv.Itoa(s.MessageCount),
			strconv.Itoa(s.QuestionCount),
		})
		urls += s.URLCount
		messages += s.MessageCount
		questions += s.QuestionCount
	}

	fmt.Fprintln(w, cliui.Table(
		[]string{"ID", "Username", "Role", "Pro", "URLs", "Messages", "Questions"},
		rows,
	))
	fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf(
		"%d users, %d urls, %d messages, %d questions", len(stats), urls, messages, questions)))
}
