package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dshills/pinup/pkg/types"
)

const previewWidth = 60

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// formatMillis renders a ms-since-epoch timestamp in local time
func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func flagLabel(pinned, archived bool) string {
	var labels []string
	if pinned {
		labels = append(labels, "pinned")
	}
	if archived {
		labels = append(labels, "archived")
	}
	return strings.Join(labels, ",")
}

func renderSearchResults(w io.Writer, resp *types.SearchResponse) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Title", "Tags", "Collections", "Flags", "Created"})
	for _, r := range resp.Results {
		t.AppendRow(table.Row{
			shortID(r.ID),
			truncate(r.Title, previewWidth),
			joinOrDash(r.Tags),
			joinOrDash(r.Collections),
			flagLabel(r.Pinned, r.Archived),
			formatMillis(r.CreatedAt),
		})
	}
	t.AppendFooter(table.Row{"", pageLabel(resp.Offset, len(resp.Results), resp.Total)})
	t.Render()
}

// pageLabel describes the window of results shown, e.g. "21-40 of 57"
func pageLabel(offset, shown, total int) string {
	if shown == 0 {
		return fmt.Sprintf("no results (%d total)", total)
	}
	return fmt.Sprintf("%d-%d of %d", offset+1, offset+shown, total)
}

func renderSnippet(w io.Writer, sn *types.Snippet) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"ID", sn.ID},
		{"Title", sn.Title},
		{"Language", types.Deref(sn.Language)},
		{"Source", types.Deref(sn.Source)},
		{"URL", types.Deref(sn.SourceURL)},
		{"Tags", joinOrDash(sn.Tags)},
		{"Collections", joinOrDash(sn.Collections)},
		{"Flags", flagLabel(sn.Pinned, sn.Archived)},
		{"Created", formatMillis(sn.CreatedAt)},
		{"Updated", formatMillis(sn.UpdatedAt)},
	})
	t.Render()
	fmt.Fprintln(w)
	fmt.Fprintln(w, sn.Body)
}

func renderTags(w io.Writer, tags []*types.Tag) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Tag", "Snippets", "Color"})
	for _, tag := range tags {
		t.AppendRow(table.Row{tag.Name, tag.SnippetCount, types.Deref(tag.Color)})
	}
	t.Render()
}

func renderCollections(w io.Writer, collections []*types.Collection) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Collection", "Snippets", "Description"})
	for _, c := range collections {
		t.AppendRow(table.Row{c.Name, c.SnippetCount, truncate(types.Deref(c.Description), previewWidth)})
	}
	t.Render()
}

func renderStats(w io.Writer, stats *types.Stats) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Snippets", stats.Snippets},
		{"Pinned", stats.Pinned},
		{"Archived", stats.Archived},
		{"Tags", stats.Tags},
		{"Collections", stats.Collections},
		{"Index entries", stats.IndexEntries},
		{"Created (7 days)", stats.CreatedLast7},
		{"Created (30 days)", stats.CreatedLast30},
		{"Cached searches", stats.CachedSearches},
		{"Rebuild running", stats.Indexing},
	})
	t.Render()

	if len(stats.TopTags) > 0 {
		top := newTable(w)
		top.AppendHeader(table.Row{"Top tags", "Snippets"})
		for _, nc := range stats.TopTags {
			top.AppendRow(table.Row{nc.Name, nc.Count})
		}
		top.Render()
	}
}

// shortID abbreviates a uuid for table display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
