// Package parser turns raw search strings into structured queries.
//
// A query string mixes free text with key:value filter tokens:
//
//	retry "exponential backoff" tag:go tag:network language:go archived:true
//
// Six keys are recognized, case-insensitively:
//   - tag:<name>         repeatable, every listed tag is required (lowercased)
//   - collection:<name>  repeatable, every listed collection is required
//   - source:<value>     last occurrence wins
//   - language:<value>   last occurrence wins (lowercased)
//   - pinned:<bool>      true, 1 or yes mean true; anything else is false
//   - archived:<bool>    same coercion as pinned
//
// Values may be wrapped in single or double quotes, which are stripped.
// Tokens with any other key, such as "http://example.com" or "foo:bar",
// stay in the free text.
//
// # Basic Usage
//
//	p := parser.New()
//	q := p.Parse("tag:python tag:cli sort me out")
//	// q.Tags  == []string{"python", "cli"}
//	// q.Terms == "sort me out"
//
// Parsing never fails. An empty or whitespace-only input yields a query with
// no terms and no filters.
package parser
