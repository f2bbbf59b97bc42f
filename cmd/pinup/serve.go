package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/pinup/internal/indexer"
	"github.com/dshills/pinup/internal/mcp"
	"github.com/dshills/pinup/internal/storage"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var skipReindex bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long:  "Start the Model Context Protocol server. stdout carries protocol frames, logs go to stderr.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(opts, func(a *app) error {
				server := mcp.NewServer(a.library, a.searcher, mcp.Options{
					Version:      version,
					DefaultLimit: opts.cfg.DefaultLimit,
					MaxLimit:     opts.cfg.MaxLimit,
					Logger:       opts.logger,
				})

				opts.logger.Info("pinup MCP server starting",
					"version", version,
					"db", opts.cfg.DBPath,
					"build_mode", storage.BuildMode)

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					err := server.Serve(gctx)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				})

				if opts.cfg.ReindexOnStartup && !skipReindex {
					g.Go(func() error {
						// Index repair failures are logged; the server keeps
						// answering from the existing index.
						stats, err := a.library.Reindex(gctx)
						switch {
						case err == nil:
							opts.logger.Info("startup reindex complete",
								"snippets", stats.SnippetsIndexed,
								"duration", stats.Duration)
						case errors.Is(err, indexer.ErrIndexingInProgress), errors.Is(err, context.Canceled):
						default:
							opts.logger.Error("startup reindex failed", "error", err)
						}
						return nil
					})
				}

				err := g.Wait()
				opts.logger.Info("server stopped")
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&skipReindex, "no-reindex", false, "skip the startup index rebuild")
	return cmd
}
