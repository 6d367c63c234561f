// Package discover implements the discover command.
package discover

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/reader/cmd/common"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
)

// Command returns the discover command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <website-url>",
		Short: "Find the feeds a website advertises or serves at common paths",
		Example: `  reader discover https://go.dev/blog
  reader discover example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, deps, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			feeds, err := svc.DiscoverFeeds(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("discover %s: %w", args[0], err)
			}

			deps.Logger.Info("discovery finished",
				logger.String("url", args[0]),
				logger.Int("feeds", len(feeds)),
			)

			if len(feeds) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No feeds found")
				return nil
			}

			t := common.NewTable(cmd.OutOrStdout(), table.Row{"#", "Feed URL"})
			for i, f := range feeds {
				t.AppendRow(table.Row{i + 1, f})
			}
			t.Render()
			return nil
		},
	}
}
