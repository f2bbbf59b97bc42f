package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/dshills/pinup/pkg/types"
)

// bm25Score ranks index rows; lower is better. Column weights follow the
// snippets_fts column order: snippet_id, title, body, tags, collections,
// source, language.
const bm25Score = "bm25(snippets_fts, 0.0, 10.0, 1.0, 5.0, 3.0, 1.0, 2.0)"

// searchPlan accumulates the joins and AND-ed predicates of a search.
// Values are only ever bound as parameters; identifiers are generated.
type searchPlan struct {
	joins   []string
	wheres  []string
	args    []interface{}
	hasText bool
}

func (p *searchPlan) join(clause string) {
	p.joins = append(p.joins, clause)
}

func (p *searchPlan) where(clause string, args ...interface{}) {
	p.wheres = append(p.wheres, clause)
	p.args = append(p.args, args...)
}

// newSearchPlan translates a parsed query into joins and predicates
func newSearchPlan(query *types.ParsedQuery, includeArchived bool) *searchPlan {
	p := &searchPlan{}
	if query == nil {
		query = &types.ParsedQuery{}
	}

	if match := buildMatchExpression(query.Terms); match != "" {
		p.hasText = true
		p.join("JOIN snippet_index_keys k ON k.snippet_id = s.id")
		p.join("JOIN snippets_fts ON snippets_fts.rowid = k.doc_id")
		p.where("snippets_fts MATCH ?", match)
	}

	// One join pair per distinct tag gives intersection semantics
	for i, name := range distinctFold(query.Tags) {
		st, t := fmt.Sprintf("st%d", i), fmt.Sprintf("t%d", i)
		p.join(fmt.Sprintf("JOIN snippet_tags %s ON %s.snippet_id = s.id", st, st))
		p.join(fmt.Sprintf("JOIN tags %s ON %s.id = %s.tag_id", t, t, st))
		p.where(t+".name = ?", types.NormalizeTagName(name))
	}

	for i, name := range distinctFold(query.Collections) {
		sc, c := fmt.Sprintf("sc%d", i), fmt.Sprintf("c%d", i)
		p.join(fmt.Sprintf("JOIN snippet_collections %s ON %s.snippet_id = s.id", sc, sc))
		p.join(fmt.Sprintf("JOIN collections %s ON %s.id = %s.collection_id", c, c, sc))
		p.where("LOWER("+c+".name) = LOWER(?)", name)
	}

	if query.Source != nil {
		p.where("LOWER(s.source) = LOWER(?)", *query.Source)
	}
	if query.Language != nil {
		p.where("LOWER(s.language) = LOWER(?)", *query.Language)
	}
	if query.Pinned != nil {
		p.where("s.pinned = ?", *query.Pinned)
	}

	switch {
	case query.Archived != nil:
		p.where("s.archived = ?", *query.Archived)
	case !includeArchived:
		p.where("s.archived = 0")
	}

	return p
}

// distinctFold drops case-insensitive repeats, keeping first occurrences in order
func distinctFold(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// from returns the shared FROM ... WHERE ... tail of the count and page queries
func (p *searchPlan) from() string {
	var b strings.Builder
	b.WriteString(" FROM snippets s")
	for _, j := range p.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if len(p.wheres) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(p.wheres, " AND "))
	}
	return b.String()
}

func (p *searchPlan) countQuery() (string, []interface{}) {
	return "SELECT COUNT(DISTINCT s.id)" + p.from(), p.args
}

func (p *searchPlan) pageQuery(sort types.SortMode, limit, offset int) (string, []interface{}) {
	selectList := "SELECT DISTINCT " + snippetColumns
	if p.hasText {
		selectList += ", " + bm25Score + " AS score"
	}
	if limit <= 0 {
		limit = -1 // no limit
	}

	query := selectList + p.from() + " ORDER BY " + p.orderBy(sort) + " LIMIT ? OFFSET ?"
	args := make([]interface{}, 0, len(p.args)+2)
	args = append(args, p.args...)
	args = append(args, limit, offset)
	return query, args
}

// orderBy returns the ordering for sort. Every mode ends with s.id so that
// ties are broken the same way on every call.
func (p *searchPlan) orderBy(sort types.SortMode) string {
	switch sort {
	case types.SortPinned:
		return "s.pinned DESC, s.updated_at DESC, s.id ASC"
	case types.SortNewest:
		return "s.created_at DESC, s.id ASC"
	default:
		if p.hasText {
			return "score ASC, s.created_at DESC, s.id ASC"
		}
		return "s.created_at DESC, s.id ASC"
	}
}

// searchSnippetsWithQuerier counts all matches, then fetches one ranked page.
// Both statements run on q so a transaction gives them one snapshot.
func searchSnippetsWithQuerier(ctx context.Context, q querier, query *types.ParsedQuery, opts SearchOptions) (*SearchPage, error) {
	plan := newSearchPlan(query, opts.IncludeArchived)
	page := &SearchPage{Rows: []*types.Snippet{}}

	countSQL, countArgs := plan.countQuery()
	if err := q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("failed to count search matches: %w", err)
	}
	if page.Total == 0 || opts.Offset >= page.Total {
		return page, nil
	}

	pageSQL, pageArgs := plan.pageQuery(opts.Sort, opts.Limit, opts.Offset)
	rows, err := q.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var extra []interface{}
		var score float64
		if plan.hasText {
			extra = append(extra, &score)
		}
		snippet, err := scanSnippet(rows, extra...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		page.Rows = append(page.Rows, snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search rows: %w", err)
	}
	return page, nil
}

// SearchSnippets returns one ranked page of snippets matching query plus the total match count
func (s *SQLiteStorage) SearchSnippets(ctx context.Context, query *types.ParsedQuery, opts SearchOptions) (*SearchPage, error) {
	return searchSnippetsWithQuerier(ctx, s.querier(), query, opts)
}

// buildMatchExpression converts free text into an FTS5 MATCH expression.
// Bare words become quoted strings so FTS5 operators and punctuation are
// taken literally; "quoted phrases" stay phrases; a trailing * requests a
// prefix match. Terms are implicitly AND-ed. Words without any letter or
// digit are dropped, and an empty result means no text predicate.
func buildMatchExpression(terms string) string {
	var parts []string
	rest := terms

	for {
		rest = strings.TrimLeft(rest, " \t\r\n")
		if rest == "" {
			break
		}

		if rest[0] == '"' {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				// unbalanced quote, read the remainder as bare words
				rest = rest[1:]
				continue
			}
			phrase := rest[1 : end+1]
			rest = rest[end+2:]
			prefix := strings.HasPrefix(rest, "*")
			if prefix {
				rest = rest[1:]
			}
			if part := quoteFTS(phrase, prefix); part != "" {
				parts = append(parts, part)
			}
			continue
		}

		end := strings.IndexAny(rest, " \t\r\n\"")
		var word string
		if end < 0 {
			word, rest = rest, ""
		} else {
			word, rest = rest[:end], rest[end:]
		}
		prefix := strings.HasSuffix(word, "*")
		if part := quoteFTS(strings.TrimRight(word, "*"), prefix); part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, " ")
}

func quoteFTS(s string, prefix bool) string {
	if !hasIndexableRune(s) {
		return ""
	}
	quoted := `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	if prefix {
		quoted += "*"
	}
	return quoted
}

func hasIndexableRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
