package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// TotalCountHeader carries the number of favorite marks on listings.
const TotalCountHeader = "X-Total-Count"

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests. Only set
	// it when traffic is HTTPS end-to-end, proxy hop included.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// NoStore marks every response uncacheable. Favorite and unfavorite
	// responses are always uncacheable regardless.
	NoStore bool
	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

type headerPair struct{ name, value string }

// SecurityHeaders hardens every response of the JSON API:
//
//	X-Content-Type-Options: nosniff, X-Frame-Options: DENY,
//	Referrer-Policy: no-referrer                       always
//	Permissions-Policy, X-Permitted-Cross-Domain-Policies  EnablePolicy
//	Cache-Control: no-store, Pragma, Expires           NoStore or PUT/POST/PATCH/DELETE
//	Strict-Transport-Security                          EnableHSTS and HTTPS
//
// It also exposes X-Request-ID and X-Total-Count to browser clients. No CSP
// is set; nothing here serves HTML.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	always := []headerPair{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		always = append(always,
			headerPair{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			headerPair{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	noStore := []headerPair{
		{"Cache-Control", "no-store"},
		{"Pragma", "no-cache"},
		{"Expires", "0"},
	}

	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		setHeaders(h, always)
		if opt.NoStore || isMutating(c.Request.Method) {
			setHeaders(h, noStore)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		exposeHeaders(h, requestIDHeader, TotalCountHeader)
		c.Next()
	}
}

func setHeaders(h http.Header, pairs []headerPair) {
	for _, p := range pairs {
		h.Set(p.name, p.value)
	}
}

// isHTTPS trusts X-Forwarded-Proto; the service runs behind a proxy.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// exposeHeaders appends names to Access-Control-Expose-Headers, keeping
// existing entries and skipping case-insensitive duplicates.
func exposeHeaders(h http.Header, names ...string) {
	const key = "Access-Control-Expose-Headers"
	var list []string
	if cur := h.Get(key); cur != "" {
		list = append(list, cur)
	}
	for _, n := range names {
		if !containsToken(strings.Join(list, ","), n) {
			list = append(list, n)
		}
	}
	if len(list) > 0 {
		h.Set(key, strings.Join(list, ", "))
	}
}

func containsToken(list, name string) bool {
	for _, part := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(part), name) {
			return true
		}
	}
	return false
}
