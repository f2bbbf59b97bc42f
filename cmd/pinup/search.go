package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/pinup/internal/searcher"
	"github.com/dshills/pinup/pkg/types"
)

func newSearchCmd(opts *globalOptions) *cobra.Command {
	var (
		limit           int
		offset          int
		sort            string
		includeArchived bool
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search snippets",
		Long: `Search snippets with free text and filters.

Filters: tag:NAME collection:NAME language:NAME source:NAME pinned:true archived:true
Repeated tag: and collection: filters must all match. Free text supports "quoted phrases" and prefix* matches.`,
		Example: `  pinup search tag:go tag:cli "worker pool"
  pinup search collection:Work pinned:true --sort newest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sortMode, err := types.ParseSortMode(sort)
			if err != nil {
				return err
			}

			return withApp(opts, func(a *app) error {
				resp, err := a.searcher.Search(cmd.Context(), searcher.SearchRequest{
					Query:           strings.Join(args, " "),
					Limit:           limit,
					Offset:          offset,
					Sort:            sortMode,
					IncludeArchived: includeArchived,
				})
				if err != nil {
					return err
				}

				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				renderSearchResults(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (default from config)")
	cmd.Flags().IntVar(&offset, "offset", 0, "results to skip")
	cmd.Flags().StringVar(&sort, "sort", "relevance", "sort mode: relevance, newest, pinned")
	cmd.Flags().BoolVar(&includeArchived, "archived", false, "include archived snippets")
	return cmd
}
