// Package normalize converts upstream gist payloads into the service's
// stable read model. Conversions are pure and total: any decoded gist
// normalizes without error.
package normalize

import (
	"github.com/tbourn/go-gist-favorites/internal/domain"
	"github.com/tbourn/go-gist-favorites/internal/github"
)

// Gist converts a raw upstream gist. Files become an ordered list in the
// order GitHub enumerated them; a gist with no files gets an empty list.
// A null upstream description becomes "".
func Gist(raw github.RawGist) domain.Gist {
	files := make([]domain.GistFile, 0, len(raw.Files))
	for _, f := range raw.Files {
		files = append(files, domain.GistFile{
			Filename: f.Filename,
			Type:     f.Type,
			Language: f.Language,
			RawURL:   f.RawURL,
			Size:     f.Size,
			Content:  f.Content,
		})
	}

	var desc string
	if raw.Description != nil {
		desc = *raw.Description
	}

	return domain.Gist{
		ID:          raw.ID,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
		Description: desc,
		Files:       files,
	}
}

// Gists normalizes a page of raw gists, preserving order.
func Gists(raw []github.RawGist) []domain.Gist {
	out := make([]domain.Gist, 0, len(raw))
	for _, g := range raw {
		out = append(out, Gist(g))
	}
	return out
}
