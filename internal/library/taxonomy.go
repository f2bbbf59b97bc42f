package library

import (
	"context"
	"strings"

	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

// UpsertTag creates a tag or returns the existing one with the same name.
// A non-nil color replaces the stored color.
func (s *Service) UpsertTag(ctx context.Context, name string, color *string) (*types.Tag, error) {
	tag := &types.Tag{Name: name, Color: trimmed(color)}
	if err := s.withTx(ctx, func(tx storage.Tx) error {
		return tx.UpsertTag(ctx, tag)
	}); err != nil {
		return nil, err
	}
	return tag, nil
}

// RenameTag renames a tag and reindexes every snippet carrying it
func (s *Service) RenameTag(ctx context.Context, oldName, newName string) (*types.Tag, error) {
	var renamed *types.Tag
	err := s.withTx(ctx, func(tx storage.Tx) error {
		tag, err := tx.GetTagByName(ctx, oldName)
		if err != nil {
			return err
		}
		if err := tx.RenameTag(ctx, tag.ID, newName); err != nil {
			return err
		}
		if err := s.indexer.ReindexTag(ctx, tx, tag.ID); err != nil {
			return err
		}
		renamed, err = tx.GetTag(ctx, tag.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag renamed", "from", oldName, "to", renamed.Name)
	return renamed, nil
}

// DeleteTag removes a tag from every snippet and reindexes them
func (s *Service) DeleteTag(ctx context.Context, name string) error {
	err := s.withTx(ctx, func(tx storage.Tx) error {
		tag, err := tx.GetTagByName(ctx, name)
		if err != nil {
			return err
		}
		affected, err := tx.SnippetIDsForTag(ctx, tag.ID)
		if err != nil {
			return err
		}
		if err := tx.DeleteTag(ctx, tag.ID); err != nil {
			return err
		}
		return s.indexer.ReindexSnippetsWith(ctx, tx, affected)
	})
	if err != nil {
		return err
	}

	s.logger.Info("tag deleted", "name", name)
	return nil
}

// ListTags returns all tags with snippet counts, ordered by name
func (s *Service) ListTags(ctx context.Context) ([]*types.Tag, error) {
	return s.storage.ListTags(ctx)
}

// CollectionAttributes are the optional descriptive fields of a collection
type CollectionAttributes struct {
	Description *string
	Icon        *string
	Color       *string
}

// UpsertCollection creates a collection or returns the existing one with the
// same case-insensitive name, updating any attribute that is set
func (s *Service) UpsertCollection(ctx context.Context, name string, attrs CollectionAttributes) (*types.Collection, error) {
	coll := &types.Collection{
		Name:        strings.TrimSpace(name),
		Description: trimmed(attrs.Description),
		Icon:        trimmed(attrs.Icon),
		Color:       trimmed(attrs.Color),
	}
	if err := s.withTx(ctx, func(tx storage.Tx) error {
		return tx.UpsertCollection(ctx, coll)
	}); err != nil {
		return nil, err
	}
	return coll, nil
}

// RenameCollection renames a collection and reindexes its snippets
func (s *Service) RenameCollection(ctx context.Context, oldName, newName string) (*types.Collection, error) {
	var renamed *types.Collection
	err := s.withTx(ctx, func(tx storage.Tx) error {
		coll, err := tx.GetCollectionByName(ctx, oldName)
		if err != nil {
			return err
		}
		if err := tx.RenameCollection(ctx, coll.ID, newName); err != nil {
			return err
		}
		if err := s.indexer.ReindexCollection(ctx, tx, coll.ID); err != nil {
			return err
		}
		renamed, err = tx.GetCollection(ctx, coll.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collection renamed", "from", oldName, "to", renamed.Name)
	return renamed, nil
}

// DeleteCollection removes a collection and reindexes its former members
func (s *Service) DeleteCollection(ctx context.Context, name string) error {
	err := s.withTx(ctx, func(tx storage.Tx) error {
		coll, err := tx.GetCollectionByName(ctx, name)
		if err != nil {
			return err
		}
		affected, err := tx.SnippetIDsForCollection(ctx, coll.ID)
		if err != nil {
			return err
		}
		if err := tx.DeleteCollection(ctx, coll.ID); err != nil {
			return err
		}
		return s.indexer.ReindexSnippetsWith(ctx, tx, affected)
	})
	if err != nil {
		return err
	}

	s.logger.Info("collection deleted", "name", name)
	return nil
}

// ListCollections returns all collections with snippet counts
func (s *Service) ListCollections(ctx context.Context) ([]*types.Collection, error) {
	return s.storage.ListCollections(ctx)
}
