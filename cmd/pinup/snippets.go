package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/pinup/internal/library"
	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

func newAddCmd(opts *globalOptions) *cobra.Command {
	var (
		title       string
		body        string
		language    string
		source      string
		sourceURL   string
		tags        []string
		collections []string
		pinned      bool
		allowDup    bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a snippet",
		Long:  "Add a snippet from --body or standard input. The title defaults to the first meaningful line.",
		Example: `  pinup add --tag go --collection Work --body 'ctx, cancel := context.WithTimeout(ctx, time.Second)'
  pbpaste | pinup add --tag shell --lang bash`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if body == "" && stdinIsPipe() {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				body = string(data)
			}

			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				if !allowDup && strings.TrimSpace(body) != "" {
					dup, err := a.library.FindDuplicate(ctx, body)
					switch {
					case err == nil:
						return fmt.Errorf("identical snippet already exists: %s (use --allow-duplicate)", dup.ID)
					case !errors.Is(err, storage.ErrNotFound):
						return err
					}
				}

				sn, err := a.library.CreateSnippet(ctx, library.CreateSnippetInput{
					Title:       title,
					Body:        body,
					Language:    optional(language),
					Source:      optional(source),
					SourceURL:   optional(sourceURL),
					Pinned:      pinned,
					Tags:        tags,
					Collections: collections,
				})
				if err != nil {
					return err
				}

				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), sn)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q\n", sn.ID, sn.Title)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&title, "title", "t", "", "snippet title")
	f.StringVarP(&body, "body", "b", "", "snippet body (default: read stdin)")
	f.StringVarP(&language, "lang", "l", "", "language")
	f.StringVar(&source, "source", "cli", "source label")
	f.StringVar(&sourceURL, "url", "", "source URL")
	f.StringSliceVar(&tags, "tag", nil, "tag name (repeatable)")
	f.StringSliceVar(&collections, "collection", nil, "collection name (repeatable)")
	f.BoolVar(&pinned, "pin", false, "pin the snippet")
	f.BoolVar(&allowDup, "allow-duplicate", false, "store even if an identical body exists")
	return cmd
}

func newShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				sn, err := a.library.GetSnippet(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), sn)
				}
				renderSnippet(cmd.OutOrStdout(), sn)
				return nil
			})
		},
	}
}

func newEditCmd(opts *globalOptions) *cobra.Command {
	var (
		title       string
		body        string
		language    string
		source      string
		sourceURL   string
		tags        []string
		collections []string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a snippet",
		Long: "Edit the fields named by flags and leave the rest alone. An empty --title " +
			"falls back to the first meaningful line of the body; an empty --tag or --collection clears membership.",
		Example: `  pinup edit 3f2a9c1e-... --title "Retry with backoff" --tag go --tag retry
  pinup edit 3f2a9c1e-... --collection ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var in library.UpdateSnippetInput
			if f.Changed("title") {
				in.Title = &title
			}
			if f.Changed("body") {
				in.Body = &body
			}
			if f.Changed("lang") {
				in.Language = &language
			}
			if f.Changed("source") {
				in.Source = &source
			}
			if f.Changed("url") {
				in.SourceURL = &sourceURL
			}
			if f.Changed("tag") {
				in.Tags = nonBlank(tags)
			}
			if f.Changed("collection") {
				in.Collections = nonBlank(collections)
			}

			return withApp(opts, func(a *app) error {
				sn, err := a.library.UpdateSnippet(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), sn)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %q\n", sn.ID, sn.Title)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&title, "title", "t", "", "snippet title")
	f.StringVarP(&body, "body", "b", "", "snippet body")
	f.StringVarP(&language, "lang", "l", "", "language")
	f.StringVar(&source, "source", "", "source label")
	f.StringVar(&sourceURL, "url", "", "source URL")
	f.StringSliceVar(&tags, "tag", nil, "replace tags (repeatable)")
	f.StringSliceVar(&collections, "collection", nil, "replace collections (repeatable)")
	return cmd
}

// newFlagCmd builds one of the pin/unpin/archive/unarchive toggles
func newFlagCmd(opts *globalOptions, use, short string, set func(a *app, cmd *cobra.Command, id string) (*types.Snippet, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				sn, err := set(a, cmd, args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), sn)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sn.ID, orDash(flagLabel(sn.Pinned, sn.Archived)))
				return nil
			})
		},
	}
}

func newPinCmds(opts *globalOptions) []*cobra.Command {
	return []*cobra.Command{
		newFlagCmd(opts, "pin", "Pin a snippet", func(a *app, cmd *cobra.Command, id string) (*types.Snippet, error) {
			return a.library.SetPinned(cmd.Context(), id, true)
		}),
		newFlagCmd(opts, "unpin", "Unpin a snippet", func(a *app, cmd *cobra.Command, id string) (*types.Snippet, error) {
			return a.library.SetPinned(cmd.Context(), id, false)
		}),
		newFlagCmd(opts, "archive", "Archive a snippet; archived snippets only match archived:true", func(a *app, cmd *cobra.Command, id string) (*types.Snippet, error) {
			return a.library.SetArchived(cmd.Context(), id, true)
		}),
		newFlagCmd(opts, "unarchive", "Restore an archived snippet", func(a *app, cmd *cobra.Command, id string) (*types.Snippet, error) {
			return a.library.SetArchived(cmd.Context(), id, false)
		}),
	}
}

func newRmCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete snippets",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				for _, id := range args {
					if err := a.library.DeleteSnippet(cmd.Context(), id); err != nil {
						return fmt.Errorf("deleting %s: %w", id, err)
					}
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), map[string]interface{}{"deleted": args})
				}
				for _, id := range args {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
				}
				return nil
			})
		},
	}
}

// nonBlank drops empty names so that --tag "" clears membership
func nonBlank(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) != "" {
			out = append(out, n)
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return types.StringPtr(s)
}
