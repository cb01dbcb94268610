// Package searchcmder provides the search command for semantic search over a
// user's saved URLs and chat history.
package searchcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/leo/cmd/leo/storecmd"
	"github.com/papercomputeco/leo/pkg/cliui"
	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage/indexed"
	"github.com/papercomputeco/leo/pkg/utils"
)

const searchLongDesc string = `Search a user's saved URLs, or chat history with --messages.

Results come from the configured vector store. When the store has no
matches, a plain text match is used instead. A vector store provider must
be configured (vector_store.provider or --vector-store-provider).

Examples:
  leo search alex "distributed tracing"
  leo search alex "pricing" --messages --top 3
  leo search alex "go generics" --vector-store-provider chromem --vector-store-target ~/.leo/vectors`

const searchShortDesc string = "Search saved URLs and chat history"

// ErrSearchDisabled is returned when no vector store is configured.
var ErrSearchDisabled = errors.New("search requires a vector store; set vector_store.provider")

const previewLen = 77

type searchCommander struct {
	topK     int
	messages bool
	out      io.Writer
}

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <username> <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.out = cmd.OutOrStdout()

			ctx := cmd.Context()
			store, err := storecmd.Open(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			idx, ok := store.Driver.(*indexed.Driver)
			if !ok {
				return ErrSearchDisabled
			}

			return cmder.run(ctx, idx, args[0], args[1])
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.messages, "messages", "m", false, "Search chat history instead of URLs")
	storecmd.Register(cmd)

	return cmd
}

func (c *searchCommander) run(ctx context.Context, idx *indexed.Driver, username, query string) error {
	user, err := idx.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s %s\n\n",
		cliui.HeaderStyle.Render("Search results for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", query)),
	)

	if c.messages {
		found, err := idx.SearchChatMessages(ctx, user.ID, query, c.topK)
		if err != nil {
			return err
		}
		for i, m := range found {
			c.printMessage(i+1, m)
		}
		return c.done(len(found))
	}

	found, err := idx.SearchURLs(ctx, user.ID, query, c.topK)
	if err != nil {
		return err
	}
	for i, u := range found {
		c.printURL(i+1, u)
	}
	return c.done(len(found))
}

func (c *searchCommander) printURL(rank int, u *model.URL) {
	title := u.URL
	if u.Title != nil && *u.Title != "" {
		title = *u.Title
	}

	fmt.Fprintf(c.out, "  %s  %s\n", cliui.NameStyle.Render(fmt.Sprintf("#%d", rank)), cliui.ValueStyle.Render(title))
	fmt.Fprintf(c.out, "      %s\n", cliui.DimStyle.Render(u.URL))
	if u.Notes != nil && *u.Notes != "" {
		fmt.Fprintf(c.out, "      %s\n", preview(*u.Notes))
	}
	fmt.Fprintln(c.out)
}

func (c *searchCommander) printMessage(rank int, m *model.ChatMessage) {
	fmt.Fprintf(c.out, "  %s  %s %s\n",
		cliui.NameStyle.Render(fmt.Sprintf("#%d", rank)),
		cliui.DimStyle.Render("["+m.Role+"]"),
		preview(m.Content),
	)
	fmt.Fprintf(c.out, "      %s\n\n", cliui.DimStyle.Render(m.CreatedAt.Format("2006-01-02 15:04")))
}

func (c *searchCommander) done(n int) error {
	if n == 0 {
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("No results found."))
	}
	return nil
}

func preview(s string) string {
	return cliui.ValueStyle.Render(utils.Truncate(strings.ReplaceAll(s, "\n", " "), previewLen))
}
