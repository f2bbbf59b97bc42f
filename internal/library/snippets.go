package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

// CreateSnippetInput describes a new snippet. Tags and collections are
// referenced by name and created when missing.
type CreateSnippetInput struct {
	Title       string
	Body        string
	Language    *string
	Source      *string
	SourceURL   *string
	Pinned      bool
	Tags        []string
	Collections []string
}

// UpdateSnippetInput patches a snippet. Nil fields are left unchanged; a
// non-nil empty Tags or Collections slice clears the membership.
type UpdateSnippetInput struct {
	Title       *string
	Body        *string
	Language    *string
	Source      *string
	SourceURL   *string
	Pinned      *bool
	Archived    *bool
	Tags        []string
	Collections []string
}

// ListOptions selects a page of snippets, newest first. A zero Limit
// returns every match.
type ListOptions struct {
	Tag             string
	Collection      string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// SnippetPage is one page of full snippets
type SnippetPage struct {
	Snippets []*types.Snippet
	Total    int
}

// CreateSnippet stores a snippet, its membership and its index entry
func (s *Service) CreateSnippet(ctx context.Context, in CreateSnippetInput) (*types.Snippet, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, types.ErrEmptyBody
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = InferTitle(in.Body)
	}

	snippet := &types.Snippet{
		Title:     title,
		Body:      in.Body,
		Language:  normalizeLanguage(in.Language),
		Source:    trimmed(in.Source),
		SourceURL: trimmed(in.SourceURL),
		Pinned:    in.Pinned,
	}

	err := s.withTx(ctx, func(tx storage.Tx) error {
		if err := tx.CreateSnippet(ctx, snippet); err != nil {
			return err
		}
		if err := s.setMembership(ctx, tx, snippet.ID, in.Tags, in.Collections); err != nil {
			return err
		}
		if err := s.indexer.ReindexSnippetWith(ctx, tx, snippet.ID); err != nil {
			return err
		}
		created, err := tx.GetSnippet(ctx, snippet.ID)
		if err != nil {
			return err
		}
		snippet = created
		return nil
	})
	if err != nil {
		s.logger.Error("create snippet failed", "error", err)
		return nil, err
	}

	s.logger.Info("snippet created", "id", snippet.ID, "title", snippet.Title)
	return snippet, nil
}

// UpdateSnippet applies a patch and refreshes the index entry
func (s *Service) UpdateSnippet(ctx context.Context, id string, in UpdateSnippetInput) (*types.Snippet, error) {
	var updated *types.Snippet
	err := s.withTx(ctx, func(tx storage.Tx) error {
		snippet, err := tx.GetSnippet(ctx, id)
		if err != nil {
			return err
		}

		if in.Body != nil {
			if strings.TrimSpace(*in.Body) == "" {
				return types.ErrEmptyBody
			}
			snippet.Body = *in.Body
		}
		if in.Title != nil {
			snippet.Title = strings.TrimSpace(*in.Title)
			if snippet.Title == "" {
				snippet.Title = InferTitle(snippet.Body)
			}
		}
		if in.Language != nil {
			snippet.Language = normalizeLanguage(in.Language)
		}
		if in.Source != nil {
			snippet.Source = trimmed(in.Source)
		}
		if in.SourceURL != nil {
			snippet.SourceURL = trimmed(in.SourceURL)
		}
		if in.Pinned != nil {
			snippet.Pinned = *in.Pinned
		}
		if in.Archived != nil {
			snippet.Archived = *in.Archived
		}

		if err := tx.UpdateSnippet(ctx, snippet); err != nil {
			return err
		}
		if err := s.setMembership(ctx, tx, id, in.Tags, in.Collections); err != nil {
			return err
		}
		if err := s.indexer.ReindexSnippetWith(ctx, tx, id); err != nil {
			return err
		}
		updated, err = tx.GetSnippet(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snippet updated", "id", id)
	return updated, nil
}

// SetPinned toggles the pinned flag
func (s *Service) SetPinned(ctx context.Context, id string, pinned bool) (*types.Snippet, error) {
	return s.UpdateSnippet(ctx, id, UpdateSnippetInput{Pinned: &pinned})
}

// SetArchived toggles the archived flag
func (s *Service) SetArchived(ctx context.Context, id string, archived bool) (*types.Snippet, error) {
	return s.UpdateSnippet(ctx, id, UpdateSnippetInput{Archived: &archived})
}

// DeleteSnippet removes a snippet, its membership rows and its index entry
func (s *Service) DeleteSnippet(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx storage.Tx) error {
		if err := tx.DeleteSnippet(ctx, id); err != nil {
			return err
		}
		return s.indexer.RemoveSnippetWith(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("snippet deleted", "id", id)
	return nil
}

// GetSnippet returns a snippet with its tag and collection names
func (s *Service) GetSnippet(ctx context.Context, id string) (*types.Snippet, error) {
	return s.storage.GetSnippet(ctx, id)
}

// FindDuplicate returns an existing snippet with the same body, if any
func (s *Service) FindDuplicate(ctx context.Context, body string) (*types.Snippet, error) {
	return s.storage.FindSnippetByHash(ctx, types.ContentHash(body))
}

// ListSnippets returns snippets newest first with full bodies and membership
func (s *Service) ListSnippets(ctx context.Context, opts ListOptions) (*SnippetPage, error) {
	if opts.Limit < 0 {
		return nil, types.ErrInvalidLimit
	}
	if opts.Offset < 0 {
		return nil, types.ErrInvalidOffset
	}

	query := &types.ParsedQuery{}
	if tag := types.NormalizeTagName(opts.Tag); tag != "" {
		query.Tags = []string{tag}
	}
	if coll := strings.TrimSpace(opts.Collection); coll != "" {
		query.Collections = []string{coll}
	}

	result := &SnippetPage{}
	err := s.withReadTx(ctx, func(tx storage.Tx) error {
		page, err := tx.SearchSnippets(ctx, query, storage.SearchOptions{
			Sort:            types.SortNewest,
			Limit:           opts.Limit,
			Offset:          opts.Offset,
			IncludeArchived: opts.IncludeArchived,
		})
		if err != nil {
			return err
		}
		result.Total = page.Total
		result.Snippets = page.Rows
		return hydrate(ctx, tx, page.Rows)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// setMembership replaces tag and collection membership when the respective
// slice is non-nil
func (s *Service) setMembership(ctx context.Context, tx storage.Tx, snippetID string, tags, collections []string) error {
	if tags != nil {
		ids, err := upsertTags(ctx, tx, tags)
		if err != nil {
			return err
		}
		if err := tx.SetSnippetTags(ctx, snippetID, ids); err != nil {
			return err
		}
	}
	if collections != nil {
		ids, err := upsertCollections(ctx, tx, collections)
		if err != nil {
			return err
		}
		if err := tx.SetSnippetCollections(ctx, snippetID, ids); err != nil {
			return err
		}
	}
	return nil
}

func upsertTags(ctx context.Context, tx storage.Tx, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if types.NormalizeTagName(name) == "" {
			continue
		}
		tag := &types.Tag{Name: name}
		if err := tx.UpsertTag(ctx, tag); err != nil {
			return nil, fmt.Errorf("tag %q: %w", name, err)
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

func upsertCollections(ctx context.Context, tx storage.Tx, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		coll := &types.Collection{Name: name}
		if err := tx.UpsertCollection(ctx, coll); err != nil {
			return nil, fmt.Errorf("collection %q: %w", name, err)
		}
		ids = append(ids, coll.ID)
	}
	return ids, nil
}

func hydrate(ctx context.Context, tx storage.Tx, snippets []*types.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}
	ids := make([]string, len(snippets))
	for i, sn := range snippets {
		ids[i] = sn.ID
	}
	tags, err := tx.TagNamesForSnippets(ctx, ids)
	if err != nil {
		return err
	}
	collections, err := tx.CollectionNamesForSnippets(ctx, ids)
	if err != nil {
		return err
	}
	for _, sn := range snippets {
		sn.Tags = orEmpty(tags[sn.ID])
		sn.Collections = orEmpty(collections[sn.ID])
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func normalizeLanguage(p *string) *string {
	v := trimmed(p)
	if v == nil {
		return nil
	}
	lower := strings.ToLower(*v)
	return &lower
}
