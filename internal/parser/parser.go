package parser

import (
	"regexp"
	"strings"

	"github.com/dshills/pinup/pkg/types"
)

// filterPattern matches key:value tokens at the start of the input or after whitespace
var filterPattern = regexp.MustCompile(`(?i)(^|\s)(tag|collection|source|language|pinned|archived):(\S+)`)

// Parser converts query strings into ParsedQuery values
type Parser struct {
	pattern *regexp.Regexp
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{pattern: filterPattern}
}

// Parse extracts filter tokens from raw and returns the structured query.
// Everything that is not a recognized filter becomes the free text.
func (p *Parser) Parse(raw string) *types.ParsedQuery {
	q := &types.ParsedQuery{}

	matches := p.pattern.FindAllStringSubmatchIndex(raw, -1)

	var remainder strings.Builder
	last := 0
	for _, m := range matches {
		// m[2]:m[3] is the leading separator, keep it so neighbours stay apart
		remainder.WriteString(raw[last:m[3]])
		remainder.WriteByte(' ')
		last = m[1]

		key := strings.ToLower(raw[m[4]:m[5]])
		value := unquote(raw[m[6]:m[7]])
		applyFilter(q, key, value)
	}
	remainder.WriteString(raw[last:])

	q.Terms = strings.Join(strings.Fields(remainder.String()), " ")
	return q
}

// Parse parses raw with a default Parser
func Parse(raw string) *types.ParsedQuery {
	return New().Parse(raw)
}

func applyFilter(q *types.ParsedQuery, key, value string) {
	switch key {
	case "tag":
		if name := types.NormalizeTagName(value); name != "" {
			q.Tags = append(q.Tags, name)
		}
	case "collection":
		if value != "" {
			q.Collections = append(q.Collections, value)
		}
	case "source":
		if value != "" {
			q.Source = types.StringPtr(value)
		}
	case "language":
		if value != "" {
			q.Language = types.StringPtr(strings.ToLower(value))
		}
	case "pinned":
		q.Pinned = types.BoolPtr(parseBool(value))
	case "archived":
		q.Archived = types.BoolPtr(parseBool(value))
	}
}

// parseBool reports true for true, 1 and yes in any case
func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// unquote strips surrounding single or double quotes
func unquote(value string) string {
	return strings.Trim(value, `"'`)
}
