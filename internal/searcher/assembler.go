package searcher

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

// PreviewLength is the preview size in characters
const PreviewLength = 200

// Preview returns the first PreviewLength characters of body on a single
// line. Truncation counts runes and may cut a word in half.
func Preview(body string) string {
	if utf8.RuneCountInString(body) > PreviewLength {
		body = string([]rune(body)[:PreviewLength])
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, body)
}

// assembleResults projects page rows into result items, attaching every tag
// and collection name of each snippet
func assembleResults(ctx context.Context, store storage.Storage, rows []*types.Snippet) ([]types.ResultItem, error) {
	results := make([]types.ResultItem, 0, len(rows))
	if len(rows) == 0 {
		return results, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	tags, err := store.TagNamesForSnippets(ctx, ids)
	if err != nil {
		return nil, err
	}
	collections, err := store.CollectionNamesForSnippets(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		results = append(results, types.ResultItem{
			ID:          row.ID,
			Title:       row.Title,
			Preview:     Preview(row.Body),
			Tags:        nonNil(tags[row.ID]),
			Collections: nonNil(collections[row.ID]),
			Source:      row.Source,
			Language:    row.Language,
			Pinned:      row.Pinned,
			Archived:    row.Archived,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return results, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
