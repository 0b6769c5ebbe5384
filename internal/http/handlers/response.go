package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-gist-favorites/internal/http/middleware"
	"github.com/tbourn/go-gist-favorites/internal/services"
)

// ErrorResponse is the error envelope every endpoint returns.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client report to server logs.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable code from errors.go.
	Code string `json:"code" example:"not_found"`
	// Safe to show to users.
	Message string `json:"message" example:"gist not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged on the
// request-scoped logger; 4xx are left to the access log.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router render fallbacks (404/405) with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, body any) { c.JSON(http.StatusOK, body) }

// failFor maps resolver errors onto the envelope:
//
//	invalid username / gist id   400 bad_request
//	unknown user                 404 not_found
//	GitHub down or rate limited  502 upstream_unavailable
//	favorites store failure      503 store_unavailable
//	anything else                500 internal_error
func failFor(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidUsername), errors.Is(err, services.ErrInvalidGistID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrUpstreamNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, services.ErrUpstreamUnavailable):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnavailable, "github is unavailable")
	case errors.Is(err, services.ErrStoreUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "favorites store is unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// writeLookup renders a single-gist result. An absent gist is a 404 for the
// client; the upstream cause only goes to the log.
func writeLookup(c *gin.Context, l services.Lookup, err error) {
	switch {
	case err != nil:
		failFor(c, err)
	case !l.Found():
		lg := middleware.LoggerFrom(c)
		lg.Warn().
			Err(l.Cause).
			Str("gist_id", c.Param("id")).
			Msg("gist unresolved")
		fail(c, http.StatusNotFound, ErrCodeNotFound, "gist not found")
	default:
		ok(c, l.View)
	}
}
