// Package httpapi wires the HTTP transport (Gin) to the gist resolver,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, redacted access logging, panic recovery,
// compression, metrics, CORS, security headers, and rate limiting.
//
// Middleware order is RequestID → logging → recovery so that panics and
// errors always carry a correlation ID.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-gist-favorites/docs"
	"github.com/tbourn/go-gist-favorites/internal/config"
	"github.com/tbourn/go-gist-favorites/internal/http/handlers"
	"github.com/tbourn/go-gist-favorites/internal/http/middleware"
)

// maxBodyBytes caps request bodies. No endpoint accepts a body, so this only
// bounds what a misbehaving client can make the server buffer.
const maxBodyBytes = 64 << 10

// Route patterns, relative to the API base path.
const (
	routeUserGists = "/users/:username/gists"
	routeGist      = "/gists/:id"
	routeFavorite  = "/gists/:id/favorite"
	routeFavorites = "/favorites"
)

var (
	allowMethods = []string{"GET", "PUT", "DELETE", "OPTIONS"}
	allowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	exposeHeader = []string{"X-Request-ID", middleware.TotalCountHeader, "Content-Length"}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: redacted access logs + request-scoped logger
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (gist content compresses well)
//  7. Metrics
//  8. Rate limiter (per client IP, favorites listing charged extra)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, gists handlers.GistService, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.Logger(middleware.LogOptions{
		MaskHeaders: []string{"X-GitHub-Token"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per IP. The favorites listing fans out
	// to GitHub once per mark, so it costs more than a single read.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP()).
		SetCost("/health", 0).
		SetCost("/metrics", 0).
		SetCost("/swagger/*any", 0).
		SetCost(joinPath(apiBase, routeFavorites), cfg.RateFavoritesCost)
	r.Use(rl.Handler())

	// 9) CORS posture (allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeader,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeader,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(gists)

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		api.GET(routeUserGists, h.ListUserGists)
		api.GET(routeGist, h.GetGist)
		api.GET(routeFavorites, h.ListFavorites)
		api.PUT(routeFavorite, h.FavoriteGist)
		api.DELETE(routeFavorite, h.UnfavoriteGist)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath builds the full route pattern Gin reports from c.FullPath().
func joinPath(prefix, route string) string {
	if prefix == "" || prefix == "/" {
		return route
	}
	return prefix + route
}
