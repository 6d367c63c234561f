// Package sources implements the commands that manage feed sources.
package sources

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/reader/cmd/common"
	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
)

// ErrNoFeedFound is returned by add --discover when the site exposes no feed.
var ErrNoFeedFound = errors.New("no feed found")

// Command returns the sources command and its subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage feed sources",
	}
	cmd.AddCommand(addCommand(), listCommand(), removeCommand())
	return cmd
}

func addCommand() *cobra.Command {
	var (
		title    string
		siteURL  string
		category string
		inactive bool
		discover bool
	)

	cmd := &cobra.Command{
		Use:   "add <feed-url|website-url>",
		Short: "Subscribe to a feed",
		Example: `  reader sources add https://go.dev/blog/feed.atom --title "Go Blog"
  reader sources add --discover https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, deps, err := common.OpenService(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			feedURL := args[0]
			if discover {
				feeds, discoverErr := svc.DiscoverFeeds(ctx, args[0])
				if discoverErr != nil {
					return fmt.Errorf("discover %s: %w", args[0], discoverErr)
				}
				if len(feeds) == 0 {
					return fmt.Errorf("%s: %w", args[0], ErrNoFeedFound)
				}
				feedURL = feeds[0]
				if siteURL == "" {
					siteURL = args[0]
				}
			}
			if title == "" {
				title = feedURL
			}

			src := &domain.Source{
				Title:    title,
				FeedURL:  feedURL,
				SiteURL:  siteURL,
				Category: category,
				Active:   !inactive,
			}
			if createErr := svc.Store().CreateSource(ctx, src); createErr != nil {
				return fmt.Errorf("add source: %w", createErr)
			}

			deps.Logger.Info("source added",
				logger.String("source_id", src.ID.String()),
				logger.String("feed_url", src.FeedURL),
			)
			renderSources(cmd.OutOrStdout(), []*domain.Source{src})
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "display title (defaults to the feed URL)")
	cmd.Flags().StringVar(&siteURL, "site", "", "website URL")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "add the source without including it in ingest --all")
	cmd.Flags().BoolVar(&discover, "discover", false, "treat the argument as a website and subscribe to its first feed")
	return cmd
}

func listCommand() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			list, err := svc.Store().ListSources(cmd.Context(), activeOnly)
			if err != nil {
				return fmt.Errorf("failed to get sources: %w", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sources configured")
				return nil
			}
			renderSources(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only list active sources")
	return cmd
}

func removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <source-id>",
		Short: "Delete a source and its articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("source", args[0])
			if err != nil {
				return err
			}

			svc, _, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if deleteErr := svc.Store().DeleteSource(cmd.Context(), id); deleteErr != nil {
				return fmt.Errorf("remove source: %w", deleteErr)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed source %s\n", id)
			return nil
		},
	}
}

func renderSources(w io.Writer, list []*domain.Source) {
	t := common.NewTable(w, table.Row{"ID", "Title", "Feed URL", "Category", "Active", "Last Updated"})
	for _, s := range list {
		t.AppendRow(table.Row{
			s.ID,
			common.Truncate(s.Title, common.DefaultTitleWidth),
			s.FeedURL,
			s.Category,
			s.Active,
			common.FormatTime(s.LastUpdated),
		})
	}
	t.Render()
}
