// Package articles implements the commands that list articles and update reading state.
package articles

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/reader/cmd/common"
	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/storage"
)

// DefaultListLimit caps list output when --limit is not given.
const DefaultListLimit = 50

// Command returns the articles command and its subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "List articles and update reading state",
	}
	cmd.AddCommand(listCommand(), markCommand())
	return cmd
}

func listCommand() *cobra.Command {
	var (
		source    string
		unread    bool
		favorites bool
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored articles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := storage.ArticleFilter{
				UnreadOnly:    unread,
				FavoritesOnly: favorites,
				Limit:         limit,
				Offset:        offset,
			}
			if source != "" {
				id, err := common.ParseID("source", source)
				if err != nil {
					return err
				}
				filter.SourceID = &id
			}

			svc, _, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			list, err := svc.Store().ListArticles(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list articles: %w", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No articles")
				return nil
			}

			t := common.NewTable(cmd.OutOrStdout(), table.Row{"ID", "Published", "Title", "Read", "Fav", "Progress"})
			for _, a := range list {
				t.AppendRow(table.Row{
					a.ID,
					a.PublishedAt.Local().Format(time.DateOnly),
					common.Truncate(a.Title, common.DefaultTitleWidth),
					a.IsRead,
					a.IsFavorite,
					fmt.Sprintf("%.0f%%", a.ReadingProgress*100),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "only articles of this source id")
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread articles")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favourite articles")
	cmd.Flags().IntVar(&limit, "limit", DefaultListLimit, "maximum rows (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func markCommand() *cobra.Command {
	var (
		read     bool
		favorite bool
		progress float64
	)

	cmd := &cobra.Command{
		Use:   "mark <article-id>",
		Short: "Set an article's read, favourite and progress state",
		Example: `  reader articles mark <id> --read
  reader articles mark <id> --favorite=false --progress 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("article", args[0])
			if err != nil {
				return err
			}

			svc, _, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			current, err := svc.Store().GetArticle(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("mark article: %w", err)
			}

			state := current.State()
			flags := cmd.Flags()
			if flags.Changed("read") {
				state.IsRead = read
			}
			if flags.Changed("favorite") {
				state.IsFavorite = favorite
			}
			if flags.Changed("progress") {
				state.ReadingProgress = progress
			}

			if updateErr := svc.Store().UpdateArticleState(cmd.Context(), id, state); updateErr != nil {
				return fmt.Errorf("mark article: %w", updateErr)
			}

			printState(cmd, id, state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&read, "read", false, "mark as read")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "mark as favourite")
	cmd.Flags().Float64Var(&progress, "progress", 0, "reading progress between 0 and 1")
	return cmd
}

func printState(cmd *cobra.Command, id uuid.UUID, state domain.ArticleState) {
	var a domain.Article
	a.Apply(state)
	fmt.Fprintf(cmd.OutOrStdout(), "%s read=%t favorite=%t progress=%.2f\n",
		id, a.IsRead, a.IsFavorite, a.ReadingProgress)
}
