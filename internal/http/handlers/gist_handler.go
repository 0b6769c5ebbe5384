// Gist HTTP handlers.
//
// This file exposes REST endpoints for gists and favorite marks:
//   - GET    /users/{username}/gists  (public gists of a user, upstream paging)
//   - GET    /gists/{id}              (single gist)
//   - GET    /favorites               (favorited gists, offset/limit)
//   - PUT    /gists/{id}/favorite     (mark)
//   - DELETE /gists/{id}/favorite     (unmark)
//
// Handlers are transport-thin: they parse input, call the resolver, and
// translate results into HTTP responses. Absent gists are rendered as 404 and
// the upstream cause is logged here, at the transport boundary.
package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-gist-favorites/internal/domain"
	"github.com/tbourn/go-gist-favorites/internal/http/middleware"
	"github.com/tbourn/go-gist-favorites/internal/services"
	"github.com/tbourn/go-gist-favorites/internal/utils"
)

// GistService defines the read/mark operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type GistService interface {
	// PublicGistsForUser returns one upstream page of a user's gists.
	PublicGistsForUser(ctx context.Context, username string, page, perPage int) (domain.GistsConnection, error)
	// GistByID resolves a single gist; upstream failures yield an absent Lookup.
	GistByID(ctx context.Context, id string) (services.Lookup, error)
	// FavoriteGists lists favorited gists in store order.
	FavoriteGists(ctx context.Context, offset, limit int) (services.FavoritesPage, error)
	// Favorite and Unfavorite mutate the mark and return the gist as it now reads.
	Favorite(ctx context.Context, id string) (services.Lookup, error)
	Unfavorite(ctx context.Context, id string) (services.Lookup, error)
	// CountFavorites returns the number of favorite marks.
	CountFavorites(ctx context.Context) (int64, error)
}

// Handlers groups HTTP endpoints for gists and favorites.
type Handlers struct {
	gists GistService
}

// New constructs and returns a Handlers instance bound to the given service.
func New(gists GistService) *Handlers {
	return &Handlers{gists: gists}
}

//
// DTOs
//

// FavoritesResponse wraps the favorites listing.
type FavoritesResponse struct {
	Gists []domain.GistView `json:"gists"`
}

//
// Helpers
//

// maxPerPage is GitHub's upper bound for per_page.
const maxPerPage = 100

// userPaging parses page and per_page. Missing or invalid values become 0,
// which lets the resolver and GitHub apply their defaults.
func userPaging(c *gin.Context) (page, perPage int) {
	page = utils.ClampInt(utils.AtoiDefault(c.Query("page"), 0), 0, 0)
	perPage = utils.ClampInt(utils.AtoiDefault(c.Query("per_page"), 0), 0, maxPerPage)
	return
}

// favoritesPaging parses offset and limit; the resolver applies the floor.
func favoritesPaging(c *gin.Context) (offset, limit int) {
	offset = utils.ClampInt(utils.AtoiDefault(c.Query("offset"), 0), 0, 0)
	limit = utils.ClampInt(utils.AtoiDefault(c.Query("limit"), 0), 0, 0)
	return
}

//
// Handlers
//

// ListUserGists godoc
// @ID          listUserGists
// @Summary     List a user's public gists
// @Description Returns one page of the user's public gists in GitHub order, each with meta.isFavorite. pageInfo.hasNextPage follows GitHub's Link header.
// @Tags        Gists
// @Produce     json
//
// @Param       username  path   string  true   "GitHub username"  example(octocat)
// @Param       page      query  int     false  "Upstream page"    minimum(1)
// @Param       per_page  query  int     false  "Items per page"   minimum(1) maximum(100) default(50)
//
// @Success     200  {object}  domain.GistsConnection
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown user"
// @Failure     502  {object}  handlers.ErrorResponse  "GitHub unavailable"
// @Failure     503  {object}  handlers.ErrorResponse  "Favorites store unavailable"
// @Router      /users/{username}/gists [get]
func (h *Handlers) ListUserGists(c *gin.Context) {
	page, perPage := userPaging(c)
	conn, err := h.gists.PublicGistsForUser(c.Request.Context(), c.Param("username"), page, perPage)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, conn)
}

// GetGist godoc
// @ID          getGist
// @Summary     Get a gist
// @Description Returns a single gist with meta.isFavorite. Gists GitHub cannot serve are reported as 404.
// @Tags        Gists
// @Produce     json
//
// @Param       id  path  string  true  "Gist ID"  example(aa5a315d61ae9438b18d)
//
// @Success     200  {object}  domain.GistView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Gist not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Favorites store unavailable"
// @Router      /gists/{id} [get]
func (h *Handlers) GetGist(c *gin.Context) {
	l, err := h.gists.GistByID(c.Request.Context(), c.Param("id"))
	writeLookup(c, l, err)
}

// ListFavorites godoc
// @ID          listFavorites
// @Summary     List favorited gists
// @Description Returns favorited gists, oldest mark first. At least 50 marks are read per request. If any gist cannot be fetched from GitHub the list is empty.
// @Tags        Favorites
// @Produce     json
//
// @Param       offset  query  int  false  "Marks to skip"  minimum(0) default(0)
// @Param       limit   query  int  false  "Page size"      minimum(1) default(50)
//
// @Success     200  {object}  handlers.FavoritesResponse
// @Header      200  {integer} X-Total-Count  "Total favorite marks"
// @Failure     503  {object}  handlers.ErrorResponse  "Favorites store unavailable"
// @Router      /favorites [get]
func (h *Handlers) ListFavorites(c *gin.Context) {
	ctx := c.Request.Context()
	offset, limit := favoritesPaging(c)

	page, err := h.gists.FavoriteGists(ctx, offset, limit)
	if err != nil {
		failFor(c, err)
		return
	}
	if page.Cause != nil {
		lg := middleware.LoggerFrom(c)
		lg.Warn().
			Err(page.Cause).
			Int("offset", offset).
			Int("limit", limit).
			Msg("favorites listing emptied by upstream failure")
	}

	// Best effort: the listing is still useful without a total.
	if total, err := h.gists.CountFavorites(ctx); err == nil {
		c.Header(middleware.TotalCountHeader, strconv.FormatInt(total, 10))
	}

	ok(c, FavoritesResponse{Gists: page.Views})
}

// FavoriteGist godoc
// @ID          favoriteGist
// @Summary     Mark a gist as favorite
// @Description Records the mark (idempotent) and returns the gist. The mark is kept even if GitHub cannot serve the gist, in which case 404 is returned.
// @Tags        Favorites
// @Produce     json
//
// @Param       id  path  string  true  "Gist ID"  example(aa5a315d61ae9438b18d)
//
// @Success     200  {object}  domain.GistView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Gist not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Favorites store unavailable"
// @Router      /gists/{id}/favorite [put]
func (h *Handlers) FavoriteGist(c *gin.Context) {
	l, err := h.gists.Favorite(c.Request.Context(), c.Param("id"))
	writeLookup(c, l, err)
}

// UnfavoriteGist godoc
// @ID          unfavoriteGist
// @Summary     Remove a favorite mark
// @Description Removes the mark (idempotent) and returns the gist.
// @Tags        Favorites
// @Produce     json
//
// @Param       id  path  string  true  "Gist ID"  example(aa5a315d61ae9438b18d)
//
// @Success     200  {object}  domain.GistView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Gist not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Favorites store unavailable"
// @Router      /gists/{id}/favorite [delete]
func (h *Handlers) UnfavoriteGist(c *gin.Context) {
	l, err := h.gists.Unfavorite(c.Request.Context(), c.Param("id"))
	writeLookup(c, l, err)
}
