package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Snippet represents a stored unit of code or text
type Snippet struct {
	// Identification
	ID string `json:"id"`

	// Content
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Language  *string `json:"language"`
	Source    *string `json:"source"`
	SourceURL *string `json:"source_url"`

	// Flags
	Pinned   bool `json:"pinned"`
	Archived bool `json:"archived"`

	// ContentHash is a fingerprint of Body used for duplicate detection
	ContentHash string `json:"content_hash"`

	// Membership, by name
	Tags        []string `json:"tags"`
	Collections []string `json:"collections"`

	CreatedAt int64 `json:"created_at"` // ms since epoch
	UpdatedAt int64 `json:"updated_at"` // ms since epoch
}

// Validate checks if the snippet is valid for storage
func (s *Snippet) Validate() error {
	if strings.TrimSpace(s.Body) == "" {
		return ErrEmptyBody
	}
	if strings.TrimSpace(s.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Tag is a label attached to snippets. Names are stored lowercase.
type Tag struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Color        *string `json:"color"`
	CreatedAt    int64   `json:"created_at"`
	SnippetCount int     `json:"snippet_count"` // populated by listing queries only
}

// Validate checks if the tag is valid
func (t *Tag) Validate() error {
	if NormalizeTagName(t.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Collection is a named grouping of snippets. Name case is preserved,
// uniqueness is case-insensitive.
type Collection struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color"`
	CreatedAt    int64   `json:"created_at"`
	UpdatedAt    int64   `json:"updated_at"`
	SnippetCount int     `json:"snippet_count"` // populated by listing queries only
}

// Validate checks if the collection is valid
func (c *Collection) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// ContentHash returns the fingerprint stored with a snippet body:
// the first 16 hex characters of its SHA-256 digest.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])[:16]
}

// NormalizeTagName returns the canonical stored form of a tag name
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NowMillis returns the current time in milliseconds since the Unix epoch
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// Deref returns the value of p or "" when p is nil
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
