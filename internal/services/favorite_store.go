package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-gist-favorites/internal/repo"
)

// FavoriteStore adapts the repo functions to the FavoritesStore contract
// used by GistResolver. Every failure is wrapped as ErrStoreUnavailable.
type FavoriteStore struct {
	DB *gorm.DB
}

// NewFavoriteStore returns a store bound to db.
func NewFavoriteStore(db *gorm.DB) *FavoriteStore {
	return &FavoriteStore{DB: db}
}

// FindFavorites returns the subset of ids that are marked. An empty input
// yields an empty set without a database round trip.
func (s *FavoriteStore) FindFavorites(ctx context.Context, ids []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return set, nil
	}
	found, err := repo.FindFavoriteIDs(ctx, s.DB, ids)
	if err != nil {
		return nil, storeErr("find favorites", err)
	}
	for _, id := range found {
		set[id] = struct{}{}
	}
	return set, nil
}

// Mark records id as favorited. Repeating it is a no-op.
func (s *FavoriteStore) Mark(ctx context.Context, id string) error {
	return storeErr("mark favorite", repo.MarkFavorite(ctx, s.DB, id))
}

// Unmark removes the favorite mark for id. Missing marks are a no-op.
func (s *FavoriteStore) Unmark(ctx context.Context, id string) error {
	return storeErr("unmark favorite", repo.UnmarkFavorite(ctx, s.DB, id))
}

// ListIDs returns a page of favorited ids, oldest mark first.
func (s *FavoriteStore) ListIDs(ctx context.Context, offset, limit int) ([]string, error) {
	ids, err := repo.ListFavoriteIDs(ctx, s.DB, offset, limit)
	if err != nil {
		return nil, storeErr("list favorites", err)
	}
	return ids, nil
}

// Count returns the number of favorite marks.
func (s *FavoriteStore) Count(ctx context.Context) (int64, error) {
	n, err := repo.CountFavorites(ctx, s.DB)
	if err != nil {
		return 0, storeErr("count favorites", err)
	}
	return n, nil
}
