// Package keywords implements the keywords command.
package keywords

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/reader/cmd/common"
	"github.com/jonesrussell/north-cloud/reader/internal/keyword"
)

// ErrNoInput is returned when neither text arguments nor --file are given.
var ErrNoInput = errors.New("text arguments or --file are required")

// Command returns the keywords command.
func Command() *cobra.Command {
	var (
		maxKeywords int
		file        string
		article     string
	)

	cmd := &cobra.Command{
		Use:   "keywords [text...]",
		Short: "Extract weighted keywords from text, a file, or a stored article",
		Example: `  reader keywords "Go generics make container types easier"
  reader keywords --file post.txt --max 10
  cat post.txt | reader keywords --file -
  reader keywords --article <id>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, deps, err := common.OpenService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if maxKeywords <= 0 {
				maxKeywords = deps.Config.Keywords.MaxKeywords
			}

			t := common.NewTable(cmd.OutOrStdout(), table.Row{"#", "Keyword", "Weight"})

			if article != "" {
				id, parseErr := common.ParseID("article", article)
				if parseErr != nil {
					return parseErr
				}
				weights, refreshErr := svc.RefreshKeywords(cmd.Context(), id)
				if refreshErr != nil {
					return refreshErr
				}
				for i, k := range byWeight(weights) {
					t.AppendRow(table.Row{i + 1, k.Word, fmt.Sprintf("%.4f", k.Weight)})
				}
				t.Render()
				return nil
			}

			input, err := readInput(cmd.InOrStdin(), args, file)
			if err != nil {
				return err
			}

			ranked := svc.RankKeywords(input, maxKeywords)
			if len(ranked) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No keywords")
				return nil
			}
			for i, k := range ranked {
				t.AppendRow(table.Row{i + 1, k.Word, fmt.Sprintf("%.4f", k.Weight)})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxKeywords, "max", "m", 0, "maximum keywords (default from keywords.max_keywords)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from a file, - for stdin")
	cmd.Flags().StringVar(&article, "article", "", "re-extract and store the keywords of an article id")
	return cmd
}

func readInput(stdin io.Reader, args []string, file string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", ErrNoInput
	}
}

// byWeight orders a stored keyword map heaviest first, then alphabetically.
func byWeight(weights keyword.Weights) []keyword.Keyword {
	out := make([]keyword.Keyword, 0, len(weights))
	for w, v := range weights {
		out = append(out, keyword.Keyword{Word: w, Weight: v})
	}
	slices.SortFunc(out, func(a, b keyword.Keyword) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return strings.Compare(a.Word, b.Word)
	})
	return out
}
