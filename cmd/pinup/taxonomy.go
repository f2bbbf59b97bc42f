package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/pinup/internal/library"
)

func newTagsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags with snippet counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				tags, err := a.library.ListTags(cmd.Context())
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), tags)
				}
				renderTags(cmd.OutOrStdout(), tags)
				return nil
			})
		},
	}
}

func newCollectionsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collections with snippet counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				collections, err := a.library.ListCollections(cmd.Context())
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), collections)
				}
				renderCollections(cmd.OutOrStdout(), collections)
				return nil
			})
		},
	}
}

func newRenameTagCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-tag <old> <new>",
		Short: "Rename a tag and reindex its snippets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				tag, err := a.library.RenameTag(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), tag)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed tag %q to %q\n", args[0], tag.Name)
				return nil
			})
		},
	}
}

func newRenameCollectionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-collection <old> <new>",
		Short: "Rename a collection and reindex its snippets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				coll, err := a.library.RenameCollection(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), coll)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed collection %q to %q\n", args[0], coll.Name)
				return nil
			})
		},
	}
}

func newTagCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Create or delete tags",
	}

	var color string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag, or update the color of an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				var c *string
				if cmd.Flags().Changed("color") {
					c = &color
				}
				tag, err := a.library.UpsertTag(cmd.Context(), args[0], c)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), tag)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tag %q ready\n", tag.Name)
				return nil
			})
		},
	}
	add.Flags().StringVar(&color, "color", "", "display color")

	rm := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a tag and remove it from every snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				if err := a.library.DeleteTag(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %q\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}

func newCollectionCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Create or delete collections",
	}

	var description, icon, color string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a collection, or update the attributes of an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var attrs library.CollectionAttributes
			if f.Changed("description") {
				attrs.Description = &description
			}
			if f.Changed("icon") {
				attrs.Icon = &icon
			}
			if f.Changed("color") {
				attrs.Color = &color
			}
			return withApp(opts, func(a *app) error {
				coll, err := a.library.UpsertCollection(cmd.Context(), args[0], attrs)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), coll)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Collection %q ready\n", coll.Name)
				return nil
			})
		},
	}
	add.Flags().StringVar(&description, "description", "", "collection description")
	add.Flags().StringVar(&icon, "icon", "", "display icon")
	add.Flags().StringVar(&color, "color", "", "display color")

	rm := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a collection; its snippets are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				if err := a.library.DeleteCollection(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %q\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}
