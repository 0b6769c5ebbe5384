// Package repo implements the data persistence layer for favorite marks,
// backed by GORM. This file provides repository functions for the
// FavoriteGist model.
//
// All functions are context-aware and accept a *gorm.DB handle, so they work
// inside transactions or connection-scoped operations. They follow the
// "thin repository" approach: no business logic, only persistence and query
// composition.
//
// Error semantics:
//   - Mark and unmark are idempotent. A duplicate mark is swallowed (via
//     ON CONFLICT DO NOTHING, with a driver-agnostic duplicate check as a
//     fallback); unmarking a missing row affects zero rows and is not an error.
//   - On DB errors (connectivity, missing table, etc.), the raw gorm error is
//     propagated. The services package wraps it as a store failure.
//
// Functions:
//
//   - FindFavoriteIDs(ctx, db, ids) -> []string, error
//     Returns the subset of ids that are marked. No query for empty input.
//
//   - MarkFavorite(ctx, db, gistID) -> error
//
//   - UnmarkFavorite(ctx, db, gistID) -> error
//
//   - ListFavoriteIDs(ctx, db, offset, limit) -> []string, error
//     Page of marked ids ordered (created_at ASC, gist_id ASC).
//
//   - CountFavorites(ctx, db) -> int64, error
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-gist-favorites/internal/domain"
)

// findChunk bounds the IN (...) list per query; SQLite caps bound variables.
const findChunk = 500

// FindFavoriteIDs returns the ids from the input that currently have a
// favorite mark. Output order follows the database, not the input; callers
// use it as a set. Empty input returns (nil, nil) without touching the DB.
func FindFavoriteIDs(ctx context.Context, db *gorm.DB, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var out []string
	for start := 0; start < len(ids); start += findChunk {
		end := start + findChunk
		if end > len(ids) {
			end = len(ids)
		}
		var part []string
		err := db.WithContext(ctx).
			Model(&domain.FavoriteGist{}).
			Where("gist_id IN ?", ids[start:end]).
			Pluck("gist_id", &part).Error
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

// MarkFavorite inserts a favorite mark for gistID. Marking an already
// favorited gist is a no-op and keeps the original CreatedAt.
func MarkFavorite(ctx context.Context, db *gorm.DB, gistID string) error {
	fav := &domain.FavoriteGist{
		GistID:    gistID,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fav).Error
	if err != nil && isDuplicate(err) {
		return nil
	}
	return err
}

// UnmarkFavorite removes the favorite mark for gistID. Removing a mark that
// does not exist is a no-op.
func UnmarkFavorite(ctx context.Context, db *gorm.DB, gistID string) error {
	return db.WithContext(ctx).
		Where("gist_id = ?", gistID).
		Delete(&domain.FavoriteGist{}).Error
}

// ListFavoriteIDs returns a page of favorited gist ids ordered
// deterministically (created_at ASC, gist_id ASC).
//
// The caller is responsible for computing offset and limit.
func ListFavoriteIDs(ctx context.Context, db *gorm.DB, offset, limit int) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.FavoriteGist{}).
		Order("created_at ASC, gist_id ASC").
		Offset(offset).
		Limit(limit).
		Pluck("gist_id", &out).Error
	return out, err
}

// CountFavorites returns the total number of favorite marks.
func CountFavorites(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.FavoriteGist{}).Count(&total).Error
	return total, err
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite: "UNIQUE constraint failed"; Postgres: "duplicate key value";
	// MySQL: "Duplicate entry".
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
