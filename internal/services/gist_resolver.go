// Package services – GistResolver
//
// This file implements GistResolver, which joins public gists fetched from
// GitHub with the local favorites store. Every gist it returns carries a
// meta.isFavorite flag computed from the store at request time.
//
// Result style: single-gist operations return a Lookup. An upstream failure
// produces an absent Lookup carrying the classified cause instead of an
// error, so callers can render "not found" and still log why. Store failures
// are always returned as errors.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include gist ids, usernames and paging parameters.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-gist-favorites/internal/domain"
	"github.com/tbourn/go-gist-favorites/internal/github"
	"github.com/tbourn/go-gist-favorites/internal/normalize"
	"github.com/tbourn/go-gist-favorites/internal/pagination"
)

const (
	defaultPerPage          = 50
	defaultFavoritesFloor   = 50
	defaultFetchConcurrency = 8
)

// FavoritesStore is the persistence contract the resolver needs.
type FavoritesStore interface {
	// FindFavorites returns the subset of ids that are marked.
	FindFavorites(ctx context.Context, ids []string) (map[string]struct{}, error)
	// Mark and Unmark are idempotent.
	Mark(ctx context.Context, id string) error
	Unmark(ctx context.Context, id string) error
	// ListIDs returns a page of favorited ids in store order.
	ListIDs(ctx context.Context, offset, limit int) ([]string, error)
	// Count returns the number of favorite marks.
	Count(ctx context.Context) (int64, error)
}

// GistSource fetches public gists from GitHub.
type GistSource interface {
	FetchUserGists(ctx context.Context, username string, opts github.ListOptions) (*github.UserGistsPage, error)
	FetchGist(ctx context.Context, id string) (*github.RawGist, error)
}

// ResolverOptions tunes paging and fan-out. Zero values fall back to defaults.
type ResolverOptions struct {
	// DefaultPerPage is used when a user listing asks for perPage <= 0.
	DefaultPerPage int
	// FavoritesMinLimit is the smallest page the favorites listing reads.
	FavoritesMinLimit int
	// FetchConcurrency caps GitHub fetches in flight per favorites listing.
	// Zero falls back to 8.
	FetchConcurrency int
}

// Lookup is the outcome of a single-gist operation. View is nil when the
// gist could not be resolved; Cause then holds the upstream error.
type Lookup struct {
	View  *domain.GistView
	Cause error
}

// Found reports whether the lookup produced a gist.
func (l Lookup) Found() bool { return l.View != nil }

// FavoritesPage is the outcome of a favorites listing. Views is never nil.
// When any upstream fetch failed, Views is empty and Cause holds the first
// failure.
type FavoritesPage struct {
	Views []domain.GistView
	Cause error
}

// GistResolver joins upstream gists with favorite marks.
type GistResolver struct {
	Store    FavoritesStore
	Upstream GistSource

	DefaultPerPage    int
	FavoritesMinLimit int
	FetchConcurrency  int
}

// NewGistResolver wires a resolver to its collaborators.
func NewGistResolver(store FavoritesStore, upstream GistSource, opts ResolverOptions) *GistResolver {
	r := &GistResolver{
		Store:             store,
		Upstream:          upstream,
		DefaultPerPage:    opts.DefaultPerPage,
		FavoritesMinLimit: opts.FavoritesMinLimit,
		FetchConcurrency:  opts.FetchConcurrency,
	}
	if r.DefaultPerPage <= 0 {
		r.DefaultPerPage = defaultPerPage
	}
	if r.FavoritesMinLimit <= 0 {
		r.FavoritesMinLimit = defaultFavoritesFloor
	}
	if r.FetchConcurrency <= 0 {
		r.FetchConcurrency = defaultFetchConcurrency
	}
	return r
}

func tracer() trace.Tracer { return otel.Tracer("services/GistResolver") }

// PublicGistsForUser lists one page of a user's public gists in upstream
// order. perPage <= 0 uses the default; page <= 0 lets GitHub pick page 1.
// The favorites lookup runs after the fetch because it needs the ids.
func (r *GistResolver) PublicGistsForUser(ctx context.Context, username string, page, perPage int) (domain.GistsConnection, error) {
	username = strings.TrimSpace(username)
	if perPage <= 0 {
		perPage = r.DefaultPerPage
	}
	ctx, span := tracer().Start(ctx, "PublicGistsForUser",
		trace.WithAttributes(
			attribute.String("github.username", username),
			attribute.Int("page", page),
			attribute.Int("per_page", perPage),
		),
	)
	defer span.End()

	if username == "" {
		return domain.GistsConnection{}, ErrInvalidUsername
	}

	res, err := r.Upstream.FetchUserGists(ctx, username, github.ListOptions{Page: page, PerPage: perPage})
	if err != nil {
		err = classifyUpstream(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.GistsConnection{}, err
	}

	gists := normalize.Gists(res.Gists)
	ids := make([]string, len(gists))
	for i, g := range gists {
		ids[i] = g.ID
	}

	favs, err := r.Store.FindFavorites(ctx, ids)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.GistsConnection{}, err
	}

	nodes := make([]domain.GistView, len(gists))
	for i, g := range gists {
		_, fav := favs[g.ID]
		nodes[i] = domain.NewGistView(g, fav)
	}
	span.SetAttributes(attribute.Int("gists.count", len(nodes)))

	return domain.GistsConnection{
		Nodes:    nodes,
		PageInfo: pagination.PageInfoFromLinkHeader(res.Link),
	}, nil
}

// GistByID fetches one gist and looks up its favorite mark concurrently.
func (r *GistResolver) GistByID(ctx context.Context, id string) (Lookup, error) {
	id = strings.TrimSpace(id)
	ctx, span := tracer().Start(ctx, "GistByID",
		trace.WithAttributes(attribute.String("gist.id", id)),
	)
	defer span.End()

	if id == "" {
		return Lookup{}, ErrInvalidGistID
	}
	return r.lookup(ctx, span, id)
}

func (r *GistResolver) lookup(ctx context.Context, span trace.Span, id string) (Lookup, error) {
	var (
		raw      *github.RawGist
		fetchErr error
		favs     map[string]struct{}
		markErr  error
		g        errgroup.Group
	)
	g.Go(func() error {
		raw, fetchErr = r.Upstream.FetchGist(ctx, id)
		return nil
	})
	g.Go(func() error {
		favs, markErr = r.Store.FindFavorites(ctx, []string{id})
		return nil
	})
	_ = g.Wait()

	if markErr != nil {
		span.SetStatus(codes.Error, markErr.Error())
		return Lookup{}, markErr
	}
	if fetchErr != nil {
		cause := classifyUpstream(fetchErr)
		span.SetAttributes(attribute.Bool("gist.found", false))
		return Lookup{Cause: cause}, nil
	}

	_, fav := favs[id]
	view := domain.NewGistView(normalize.Gist(*raw), fav)
	span.SetAttributes(attribute.Bool("gist.found", true), attribute.Bool("gist.favorite", fav))
	return Lookup{View: &view}, nil
}

// FavoriteGists lists favorited gists in store order. The store is read with
// max(limit, FavoritesMinLimit); limit <= 0 uses the same floor. Gists are
// fetched concurrently, at most FetchConcurrency at a time, and the marks are
// rechecked alongside. If any fetch fails the whole page is empty and Cause
// records the first failure.
func (r *GistResolver) FavoriteGists(ctx context.Context, offset, limit int) (FavoritesPage, error) {
	if limit < r.FavoritesMinLimit {
		limit = r.FavoritesMinLimit
	}
	if offset < 0 {
		offset = 0
	}
	ctx, span := tracer().Start(ctx, "FavoriteGists",
		trace.WithAttributes(
			attribute.Int("offset", offset),
			attribute.Int("limit", limit),
			attribute.Int("fetch.concurrency", r.FetchConcurrency),
		),
	)
	defer span.End()

	ids, err := r.Store.ListIDs(ctx, offset, limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return FavoritesPage{}, err
	}
	if len(ids) == 0 {
		return FavoritesPage{Views: []domain.GistView{}}, nil
	}

	raws := make([]*github.RawGist, len(ids))
	var (
		favs    map[string]struct{}
		markErr error
		marks   errgroup.Group
	)
	// The mark lookup uses the request context so a failed fetch cannot cancel it.
	marks.Go(func() error {
		favs, markErr = r.Store.FindFavorites(ctx, ids)
		return nil
	})

	fetches, fctx := errgroup.WithContext(ctx)
	fetches.SetLimit(r.FetchConcurrency)
	for i, id := range ids {
		fetches.Go(func() error {
			raw, err := r.Upstream.FetchGist(fctx, id)
			if err != nil {
				return err
			}
			raws[i] = raw
			return nil
		})
	}
	fetchErr := fetches.Wait()
	_ = marks.Wait()

	if markErr != nil {
		span.SetStatus(codes.Error, markErr.Error())
		return FavoritesPage{}, markErr
	}
	if fetchErr != nil {
		cause := classifyUpstream(fetchErr)
		span.SetAttributes(attribute.Bool("favorites.failed_closed", true))
		return FavoritesPage{Views: []domain.GistView{}, Cause: cause}, nil
	}

	views := make([]domain.GistView, len(ids))
	for i, id := range ids {
		_, fav := favs[id]
		views[i] = domain.NewGistView(normalize.Gist(*raws[i]), fav)
	}
	span.SetAttributes(attribute.Int("gists.count", len(views)))
	return FavoritesPage{Views: views}, nil
}

// Favorite marks id and returns the gist as it now reads. The mark is kept
// even when the gist cannot be fetched.
func (r *GistResolver) Favorite(ctx context.Context, id string) (Lookup, error) {
	return r.mutate(ctx, "Favorite", id, r.Store.Mark)
}

// Unfavorite removes the mark for id and returns the gist as it now reads.
func (r *GistResolver) Unfavorite(ctx context.Context, id string) (Lookup, error) {
	return r.mutate(ctx, "Unfavorite", id, r.Store.Unmark)
}

func (r *GistResolver) mutate(ctx context.Context, name, id string, apply func(context.Context, string) error) (Lookup, error) {
	id = strings.TrimSpace(id)
	ctx, span := tracer().Start(ctx, name,
		trace.WithAttributes(attribute.String("gist.id", id)),
	)
	defer span.End()

	if id == "" {
		return Lookup{}, ErrInvalidGistID
	}
	if err := apply(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Lookup{}, err
	}
	return r.lookup(ctx, span, id)
}

// CountFavorites returns the total number of favorite marks.
func (r *GistResolver) CountFavorites(ctx context.Context) (int64, error) {
	ctx, span := tracer().Start(ctx, "CountFavorites")
	defer span.End()

	n, err := r.Store.Count(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int64("favorites.total", n))
	return n, nil
}
