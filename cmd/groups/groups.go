// Package groups implements the commands that manage and match keyword groups.
package groups

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/reader/cmd/common"
	"github.com/jonesrussell/north-cloud/reader/internal/domain"
)

var (
	// ErrNoKeywords is returned by groups add without keywords.
	ErrNoKeywords = errors.New("at least one --keyword is required")
	// ErrNoTarget is returned by groups match without a group id or --all.
	ErrNoTarget = errors.New("a group id or --all is required")
)

// Command returns the groups command and its subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage keyword groups and list the articles they match",
	}
	cmd.AddCommand(addCommand(), listCommand(), matchCommand(), removeCommand())
	return cmd
}

func addCommand() *cobra.Command {
	var (
		keywords []string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:     "add <name>",
		Short:   "Create a keyword group",
		Example: `  reader groups add Architecture -k architecture -k "design patterns"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleaned := make([]string, 0, len(keywords))
			for _, k := range keywords {
				if k = strings.TrimSpace(k); k != "" {
					cleaned = append(cleaned, k)
				}
			}
			if len(cleaned) == 0 {
				return ErrNoKeywords
			}

			svc, _, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			group := &domain.KeywordGroup{Name: args[0], Keywords: cleaned, Active: !inactive}
			if createErr := svc.Store().CreateGroup(cmd.Context(), group); createErr != nil {
				return fmt.Errorf("add group: %w", createErr)
			}
			renderGroups(cmd.OutOrStdout(), []*domain.KeywordGroup{group})
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&keywords, "keyword", "k", nil, "keyword or phrase (repeatable)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the group disabled")
	return cmd
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keyword groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			list, err := svc.Store().ListGroups(cmd.Context(), false)
			if err != nil {
				return fmt.Errorf("list groups: %w", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No keyword groups")
				return nil
			}
			renderGroups(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func matchCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "match [group-id]",
		Short: "List the articles matching a group, or every active group with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return ErrNoTarget
			}

			svc, _, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			out := cmd.OutOrStdout()
			if all {
				matches, groups, matchErr := svc.MatchActiveGroups(cmd.Context())
				if matchErr != nil {
					return matchErr
				}
				t := common.NewTable(out, table.Row{"Group", "Articles"})
				for _, g := range groups {
					t.AppendRow(table.Row{g.Name, len(matches[g.ID])})
				}
				t.Render()
				return nil
			}

			id, err := common.ParseID("group", args[0])
			if err != nil {
				return err
			}
			articles, err := svc.ArticlesMatchingGroup(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(articles) == 0 {
				fmt.Fprintln(out, "No matching articles")
				return nil
			}
			renderArticles(out, articles)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "summarise every active group")
	return cmd
}

func removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <group-id>",
		Short: "Delete a keyword group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("group", args[0])
			if err != nil {
				return err
			}

			svc, _, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if deleteErr := svc.Store().DeleteGroup(cmd.Context(), id); deleteErr != nil {
				return fmt.Errorf("remove group: %w", deleteErr)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed group %s\n", id)
			return nil
		},
	}
}

func renderGroups(w io.Writer, list []*domain.KeywordGroup) {
	t := common.NewTable(w, table.Row{"ID", "Name", "Keywords", "Active"})
	for _, g := range list {
		t.AppendRow(table.Row{g.ID, g.Name, strings.Join(g.Keywords, ", "), g.Active})
	}
	t.Render()
}

func renderArticles(w io.Writer, list []*domain.Article) {
	t := common.NewTable(w, table.Row{"ID", "Published", "Title", "Link"})
	for _, a := range list {
		t.AppendRow(table.Row{
			a.ID,
			a.PublishedAt.Local().Format(time.DateOnly),
			common.Truncate(a.Title, common.DefaultTitleWidth),
			a.Link,
		})
	}
	t.Render()
}
