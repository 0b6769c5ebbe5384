package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var (
	// GitHub classic (ghp_, gho_, ghu_, ghs_, ghr_) and fine-grained tokens.
	githubTokenRE = regexp.MustCompile(`\b(?:gh[pousr]_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{22,})\b`)
	emailRE       = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
)

// redactor scrubs credentials and obvious PII from request metadata before it
// reaches the access log. Bodies are never logged.
type redactor struct {
	headers map[string]struct{}
	params  map[string]struct{}
}

func newRedactor(opts LogOptions) redactor {
	r := redactor{
		headers: map[string]struct{}{
			"authorization":       {},
			"proxy-authorization": {},
			"cookie":              {},
			"set-cookie":          {},
		},
		params: map[string]struct{}{
			"access_token":  {},
			"token":         {},
			"client_secret": {},
		},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.headers[h] = struct{}{}
		}
	}
	for _, p := range opts.MaskQueryParams {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			r.params[p] = struct{}{}
		}
	}
	return r
}

// text replaces token-shaped and email-shaped substrings.
func (r redactor) text(s string) string {
	if s == "" {
		return s
	}
	s = githubTokenRE.ReplaceAllString(s, "[REDACTED:token]")
	return emailRE.ReplaceAllString(s, "[REDACTED:email]")
}

// query masks sensitive parameters by name and scrubs the rest. Unparseable
// queries are scrubbed as text.
func (r redactor) query(raw string) string {
	if raw == "" {
		return raw
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return r.text(raw)
	}
	for k, vv := range vals {
		if _, ok := r.params[strings.ToLower(k)]; ok {
			vals[k] = []string{redacted}
			continue
		}
		for i := range vv {
			vv[i] = r.text(vv[i])
		}
	}
	return vals.Encode()
}

// header returns a flat, scrubbed copy of h.
func (r redactor) header(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.headers[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = r.text(strings.Join(vv, ", "))
	}
	return out
}
