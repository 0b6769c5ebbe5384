package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RawGist is a gist as returned by GET /gists/{id} and the user gist listing.
// Only the fields the service reads are decoded.
type RawGist struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Description *string   `json:"description"`
	Files       RawFiles  `json:"files"`
}

// RawFile is one entry of a gist's files object.
type RawFile struct {
	Filename string  `json:"filename"`
	Type     *string `json:"type"`
	Language *string `json:"language"`
	RawURL   string  `json:"raw_url"`
	Size     *int    `json:"size"`
	Content  *string `json:"content"`
}

// RawFiles holds a gist's files in the order GitHub enumerated them.
//
// GitHub encodes files as a JSON object keyed by filename. Decoding that into
// a Go map would lose the order, so the object is streamed key by key.
type RawFiles []RawFile

// UnmarshalJSON decodes a filename-keyed object into an ordered list. A null
// value decodes to an empty list. When an entry omits "filename" the object
// key is used instead.
func (f *RawFiles) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = RawFiles{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("github: gist files must be a JSON object, got %v", tok)
	}

	out := RawFiles{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var file RawFile
		if err := dec.Decode(&file); err != nil {
			return fmt.Errorf("github: gist file %q: %w", key, err)
		}
		if file.Filename == "" {
			file.Filename = key
		}
		out = append(out, file)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return err
	}

	*f = out
	return nil
}

// ListOptions are the query parameters accepted by the user gist listing.
// Zero values are omitted from the request.
type ListOptions struct {
	Page    int
	PerPage int
}

// UserGistsPage is one page of a user's public gists plus the raw Link
// response header (empty when GitHub sent none).
type UserGistsPage struct {
	Gists []RawGist
	Link  string
}
