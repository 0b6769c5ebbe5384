package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func securedRouter(opt SecurityOptions, pre gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/favorites", ok)
	r.GET("/gists/:id", ok)
	r.PUT("/gists/:id/favorite", ok)
	r.DELETE("/gists/:id/favorite", ok)
	return r
}

func TestSecurityHeaders_Defaults(t *testing.T) {
	r := securedRouter(SecurityOptions{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/favorites", nil))

	h := w.Header()
	want := map[string]string{
		"X-Content-Type-Options":            "nosniff",
		"X-Frame-Options":                   "DENY",
		"Referrer-Policy":                   "no-referrer",
		"Access-Control-Expose-Headers":     "X-Request-ID, X-Total-Count",
		"Permissions-Policy":                "",
		"X-Permitted-Cross-Domain-Policies": "",
		"Cache-Control":                     "",
		"Strict-Transport-Security":         "",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Fatalf("%s = %q; want %q", k, got, v)
		}
	}
}

func TestSecurityHeaders_CacheControlByMethod(t *testing.T) {
	cases := []struct {
		name         string
		noStore      bool
		method, path string
		want         string
	}{
		{"read", false, http.MethodGet, "/gists/abc", ""},
		{"mark", false, http.MethodPut, "/gists/abc/favorite", "no-store"},
		{"unmark", false, http.MethodDelete, "/gists/abc/favorite", "no-store"},
		{"read with NoStore", true, http.MethodGet, "/favorites", "no-store"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := securedRouter(SecurityOptions{NoStore: tc.noStore}, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if got := w.Header().Get("Cache-Control"); got != tc.want {
				t.Fatalf("Cache-Control = %q; want %q", got, tc.want)
			}
			if tc.want != "" && (w.Header().Get("Pragma") != "no-cache" || w.Header().Get("Expires") != "0") {
				t.Fatalf("legacy cache headers missing: %v", w.Header())
			}
		})
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	cases := []struct {
		name  string
		opt   SecurityOptions
		setup func(*http.Request)
		want  string
	}{
		{"tls", SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour},
			func(r *http.Request) { r.TLS = &tls.ConnectionState{} },
			"max-age=86400; includeSubDomains; preload"},
		{"forwarded https, default age", SecurityOptions{EnableHSTS: true},
			func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") },
			"max-age=15552000; includeSubDomains; preload"},
		{"plain http", SecurityOptions{EnableHSTS: true},
			func(*http.Request) {}, ""},
		{"disabled", SecurityOptions{},
			func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := securedRouter(tc.opt, nil)
			req := httptest.NewRequest(http.MethodGet, "/gists/abc", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if got := w.Header().Get("Strict-Transport-Security"); got != tc.want {
				t.Fatalf("HSTS = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestSecurityHeaders_Policy(t *testing.T) {
	r := securedRouter(SecurityOptions{EnablePolicy: true}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/favorites", nil))
	if w.Header().Get("Permissions-Policy") == "" || w.Header().Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %v", w.Header())
	}
}

func TestSecurityHeaders_ExposeMergesWithCORS(t *testing.T) {
	cases := map[string]string{
		"Foo":               "Foo, X-Request-ID, X-Total-Count",
		"X-Request-ID, Foo": "X-Request-ID, Foo, X-Total-Count",
		"x-total-count":     "x-total-count, X-Request-ID",
	}
	for existing, want := range cases {
		pre := func(c *gin.Context) {
			c.Header("Access-Control-Expose-Headers", existing)
			c.Next()
		}
		w := httptest.NewRecorder()
		securedRouter(SecurityOptions{}, pre).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/favorites", nil))
		if got := w.Header().Get("Access-Control-Expose-Headers"); got != want {
			t.Fatalf("existing %q: got %q; want %q", existing, got, want)
		}
	}
}

func TestExposeHeaders_Dedup(t *testing.T) {
	h := http.Header{}
	exposeHeaders(h, TotalCountHeader, "x-total-count")
	if got := h.Get("Access-Control-Expose-Headers"); got != TotalCountHeader {
		t.Fatalf("got %q", got)
	}
}
