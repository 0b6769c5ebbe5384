// Package middleware holds the Gin middleware the gist API runs behind:
// correlation ids, redacted access logs, panic recovery, rate limiting,
// Prometheus metrics and security headers.
//
// Order matters: RequestID, then Logger, then Recovery, so every log line
// and error body carries the request id.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxQueryLogLength caps the logged query string, in bytes.
	maxQueryLogLength = 2048
)

// RequestID reuses the caller's X-Request-ID or mints a UUIDv4, echoes it on
// the response and stores it in the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// LogOptions names extra headers and query parameters whose values are
// logged as "[REDACTED]". Names are case-insensitive and add to the
// built-ins: Authorization, Proxy-Authorization, Cookie, Set-Cookie and
// access_token, token, client_secret.
type LogOptions struct {
	MaskHeaders     []string
	MaskQueryParams []string
}

// Logger attaches a request-scoped logger (request_id, method, route) that
// handlers reach through LoggerFrom, then writes one access line per request
// once the handler chain returns. GitHub tokens and e-mail addresses are
// scrubbed from the logged query and headers.
func Logger(opts LogOptions) gin.HandlerFunc {
	red := newRedactor(opts)
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", route).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := accessEvent(&l, status, len(c.Errors) > 0)
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(red.query(c.Request.URL.RawQuery), maxQueryLogLength)).
			Interface("headers", red.header(c.Request.Header)).
			Int64("bytes_in", c.Request.ContentLength). // -1 when unknown
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Msg("request")
	}
}

// accessEvent picks the access-log level: error for 5xx or recorded gin
// errors, warn for 4xx, info otherwise.
func accessEvent(l *zerolog.Logger, status int, hasErrors bool) *zerolog.Event {
	switch {
	case hasErrors, status >= http.StatusInternalServerError:
		return l.Error()
	case status >= http.StatusBadRequest:
		return l.Warn()
	default:
		return l.Info()
	}
}

// Recovery turns a panic into a 500 with the internal_error envelope and
// logs the stack. If the handler already started the body, the status is
// set and nothing more is written.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			lg := LoggerFrom(c)
			lg.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			rid, _ := c.Get(requestIDKey)
			c.Header(requestIDHeader, asString(rid))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": asString(rid),
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the logger Logger attached, or the global logger when
// none was. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate cuts s to max bytes plus an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
