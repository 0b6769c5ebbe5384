// Package pagination translates upstream pagination metadata into the
// service's forward-only cursor signal.
//
// GitHub paginates list endpoints with an RFC 8288 Link header:
//
//	<https://api.github.com/user/1/gists?page=2>; rel="next", <https://api.github.com/user/1/gists?page=5>; rel="last"
//
// Parsing never fails: entries that do not match the grammar are skipped, so
// a malformed header simply yields no relations.
package pagination

import (
	"strings"

	"github.com/tbourn/go-gist-favorites/internal/domain"
)

// ParseLinkHeader returns a rel -> URL map for every well-formed entry of a
// Link header. An entry may carry several space-separated relations
// (rel="next last"); each gets the same URL. Relation names are lowercased.
// The first URL seen for a relation wins.
func ParseLinkHeader(header string) map[string]string {
	links := map[string]string{}
	if strings.TrimSpace(header) == "" {
		return links
	}

	for _, entry := range splitEntries(header) {
		entry = strings.TrimSpace(entry)
		if !strings.HasPrefix(entry, "<") {
			continue
		}
		end := strings.IndexByte(entry, '>')
		if end < 0 {
			continue
		}
		target := strings.TrimSpace(entry[1:end])
		if target == "" {
			continue
		}

		for _, param := range strings.Split(entry[end+1:], ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(name), "rel") {
				continue
			}
			value = strings.Trim(strings.TrimSpace(value), `"`)
			for _, rel := range strings.Fields(value) {
				rel = strings.ToLower(rel)
				if _, seen := links[rel]; !seen {
					links[rel] = target
				}
			}
		}
	}
	return links
}

// PageInfoFromLinkHeader reports HasNextPage when the header carries a
// rel="next" entry. Absent or malformed headers yield HasNextPage=false.
func PageInfoFromLinkHeader(header string) domain.PageInfo {
	_, ok := ParseLinkHeader(header)["next"]
	return domain.PageInfo{HasNextPage: ok}
}

// splitEntries splits on commas that are outside <...> and quoted strings,
// since URLs and quoted params may themselves contain commas.
func splitEntries(header string) []string {
	var (
		out     []string
		start   int
		inURL   bool
		inQuote bool
	)
	for i := 0; i < len(header); i++ {
		switch c := header[i]; {
		case c == '<' && !inQuote:
			inURL = true
		case c == '>' && !inQuote:
			inURL = false
		case c == '"' && !inURL:
			inQuote = !inQuote
		case c == ',' && !inURL && !inQuote:
			out = append(out, header[start:i])
			start = i + 1
		}
	}
	return append(out, header[start:])
}
