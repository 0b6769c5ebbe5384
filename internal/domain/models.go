// Package domain defines the persistence model for favorite marks and the
// read model returned by the resolver layer. FavoriteGist is mapped with GORM;
// the Gist* types are built fresh on every read and never persisted.
package domain

import "time"

// FavoriteGist marks a gist as favorite. Presence of a row is the whole
// signal; there is no payload beyond the creation time, which orders the
// favorites listing.
//
// Fields:
//   - GistID: upstream gist identifier, primary key (exact-match string).
//   - CreatedAt: when the mark was first created (UTC).
type FavoriteGist struct {
	GistID    string    `json:"gist_id"    gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_favorite_created"`
}

// TableName returns the database table name for FavoriteGist.
func (FavoriteGist) TableName() string { return "favorite_gists" }

// GistFile is a single file inside a gist, as reported upstream.
type GistFile struct {
	Filename string  `json:"filename"`
	Type     *string `json:"type,omitempty"`
	Language *string `json:"language,omitempty"`
	RawURL   string  `json:"raw_url"`
	Size     *int    `json:"size,omitempty"`
	Content  *string `json:"content,omitempty"`
}

// Gist is the normalized upstream gist. Files keep upstream enumeration order.
type Gist struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Description string     `json:"description"`
	Files       []GistFile `json:"files"`
}

// GistMeta carries locally computed fields merged into a gist.
type GistMeta struct {
	IsFavorite bool `json:"isFavorite"`
}

// GistView is a Gist joined with its favorite status at read time.
type GistView struct {
	Gist
	Meta GistMeta `json:"meta"`
}

// NewGistView builds the merged record. Gist content is authoritative from
// upstream; favorite status is authoritative from the store.
func NewGistView(g Gist, isFavorite bool) GistView {
	return GistView{Gist: g, Meta: GistMeta{IsFavorite: isFavorite}}
}

// PageInfo is the forward-pagination signal derived from the most recent
// upstream response.
type PageInfo struct {
	HasNextPage bool `json:"hasNextPage"`
}

// GistsConnection is one page of gist views plus the forward-pagination signal.
// Node order matches the upstream response.
type GistsConnection struct {
	Nodes    []GistView `json:"nodes"`
	PageInfo PageInfo   `json:"pageInfo"`
}
