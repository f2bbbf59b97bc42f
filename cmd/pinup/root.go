package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/pinup/internal/config"
	"github.com/dshills/pinup/internal/indexer"
	"github.com/dshills/pinup/internal/library"
	"github.com/dshills/pinup/internal/searcher"
	"github.com/dshills/pinup/internal/storage"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
	jsonOutput bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "pinup",
		Short:         "pinup - a local-first snippet library",
		Long:          "pinup stores code and text snippets with tags and collections, and searches them with a small query language.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file (default $XDG_CONFIG_HOME/pinup/config.toml)")
	flags.StringVar(&opts.dbPath, "db", "", "path to the snippet database")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text, json")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of tables")

	cmd.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newAddCmd(opts),
		newShowCmd(opts),
		newEditCmd(opts),
		newRmCmd(opts),
		newTagsCmd(opts),
		newTagCmd(opts),
		newCollectionsCmd(opts),
		newCollectionCmd(opts),
		newRenameTagCmd(opts),
		newRenameCollectionCmd(opts),
		newReindexCmd(opts),
		newStatsCmd(opts),
		newVersionCmd(),
	)
	cmd.AddCommand(newPinCmds(opts)...)
	return cmd
}

// resolve loads the configuration and applies flag overrides
func (o *globalOptions) resolve(logOut io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = newLogger(logOut, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(o.logger)
	return nil
}

// newLogger builds the process logger. Logs always go to stderr since
// stdout carries MCP frames or command output.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// app bundles the components a command needs
type app struct {
	store    *storage.SQLiteStorage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	library  *library.Service
}

func openApp(o *globalOptions) (*app, error) {
	if err := o.cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(o.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := indexer.New(store, &indexer.Config{Logger: o.logger})
	srch, err := searcher.New(store, &searcher.Config{
		DefaultLimit: o.cfg.DefaultLimit,
		MaxLimit:     o.cfg.MaxLimit,
		CacheSize:    o.cfg.CacheSize,
		Logger:       o.logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		store:    store,
		indexer:  idx,
		searcher: srch,
		library:  library.New(store, idx, srch, o.logger),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp opens the application for the duration of fn
func withApp(o *globalOptions, fn func(a *app) error) error {
	a, err := openApp(o)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			o.logger.Warn("failed to close database", "error", err)
		}
	}()
	return fn(a)
}

func stdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}
