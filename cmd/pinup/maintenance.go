package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/pinup/internal/storage"
)

func newReindexCmd(opts *globalOptions) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the full-text index from stored snippets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				if id != "" {
					if err := a.library.ReindexSnippet(cmd.Context(), id); err != nil {
						return err
					}
					if opts.jsonOutput {
						return printJSON(cmd.OutOrStdout(), map[string]interface{}{"reindexed": id})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %s\n", id)
					return nil
				}

				stats, err := a.library.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), map[string]interface{}{
						"entries_cleared":  stats.EntriesCleared,
						"snippets_indexed": stats.SnippetsIndexed,
						"batches":          stats.Batches,
						"duration_ms":      stats.Duration.Milliseconds(),
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d snippets in %s (%d stale entries cleared)\n",
					stats.SnippetsIndexed, stats.Duration.Round(time.Millisecond), stats.EntriesCleared)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "refresh the entry of a single snippet instead of rebuilding")
	return cmd
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				stats, err := a.library.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), stats)
				}
				renderStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		// No config or database needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pinup %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Go: %s\n", runtime.Version())
		},
	}
}
