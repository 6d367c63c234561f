// Package related implements the related command.
package related

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/reader/cmd/common"
)

// Command returns the related command.
func Command() *cobra.Command {
	var maxResults int

	cmd := &cobra.Command{
		Use:   "related <article-id>",
		Short: "List the stored articles most similar to an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("article", args[0])
			if err != nil {
				return err
			}

			svc, deps, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if !cmd.Flags().Changed("limit") {
				maxResults = deps.Config.Relation.MaxResults
			}

			relations, err := svc.FindRelatedArticles(cmd.Context(), id, maxResults)
			if err != nil {
				return err
			}
			if len(relations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No related articles")
				return nil
			}

			t := common.NewTable(cmd.OutOrStdout(), table.Row{"#", "Article", "Title", "Relation", "Score"})
			for i, r := range relations {
				title := ""
				if a, getErr := svc.Store().GetArticle(cmd.Context(), r.TargetArticleID); getErr == nil {
					title = a.Title
				}
				t.AppendRow(table.Row{
					i + 1,
					r.TargetArticleID,
					common.Truncate(title, common.DefaultTitleWidth),
					r.Type,
					fmt.Sprintf("%.3f", r.Score),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxResults, "limit", "n", 0, "maximum results (default from relation.max_results)")
	return cmd
}
