package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tbourn/go-gist-favorites/internal/github"
)

// ----- Fakes -----

type fakeStore struct {
	mu    sync.Mutex
	order []string
	marks map[string]struct{}

	findCalls [][]string
	findErr   error
	markErr   error
	listErr   error

	// hideOnFind drops ids from FindFavorites results, simulating an unmark
	// that lands between ListIDs and the mark recheck.
	hideOnFind map[string]bool

	listOffset, listLimit int

	// upstream lets FindFavorites record whether the fetch already ran.
	upstream      *fakeSource
	fetchedAtFind []int
}

func newFakeStore(ids ...string) *fakeStore {
	s := &fakeStore{marks: map[string]struct{}{}}
	for _, id := range ids {
		s.order = append(s.order, id)
		s.marks[id] = struct{}{}
	}
	return s
}

func (s *fakeStore) FindFavorites(ctx context.Context, ids []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls = append(s.findCalls, append([]string(nil), ids...))
	if s.upstream != nil {
		s.fetchedAtFind = append(s.fetchedAtFind, s.upstream.userCalls())
	}
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := s.marks[id]; ok && !s.hideOnFind[id] {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *fakeStore) Mark(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	if _, ok := s.marks[id]; !ok {
		s.marks[id] = struct{}{}
		s.order = append(s.order, id)
	}
	return nil
}

func (s *fakeStore) Unmark(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	delete(s.marks, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) ListIDs(ctx context.Context, offset, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listOffset, s.listLimit = offset, limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	if offset >= len(s.order) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.order) {
		end = len(s.order)
	}
	return append([]string(nil), s.order[offset:end]...), nil
}

func (s *fakeStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.order)), s.listErr
}

type fakeSource struct {
	mu    sync.Mutex
	gists map[string]github.RawGist
	fail  map[string]error

	userPage *github.UserGistsPage
	userErr  error
	user     string
	opts     github.ListOptions
	users    int

	gistCalls []string
}

func newFakeSource(gists ...github.RawGist) *fakeSource {
	src := &fakeSource{gists: map[string]github.RawGist{}, fail: map[string]error{}}
	for _, g := range gists {
		src.gists[g.ID] = g
	}
	return src
}

func (f *fakeSource) userCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users
}

func (f *fakeSource) FetchUserGists(ctx context.Context, username string, opts github.ListOptions) (*github.UserGistsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users++
	f.user, f.opts = username, opts
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.userPage, nil
}

func (f *fakeSource) FetchGist(ctx context.Context, id string) (*github.RawGist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gistCalls = append(f.gistCalls, id)
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	g, ok := f.gists[id]
	if !ok {
		return nil, &github.APIError{StatusCode: 404, Message: "Not Found"}
	}
	return &g, nil
}

func rawGist(id string, files ...string) github.RawGist {
	g := github.RawGist{ID: id}
	for _, name := range files {
		g.Files = append(g.Files, github.RawFile{Filename: name, RawURL: "https://raw/" + id + "/" + name})
	}
	return g
}

// ----- Constructor -----

func TestNewGistResolver_Defaults(t *testing.T) {
	r := NewGistResolver(newFakeStore(), newFakeSource(), ResolverOptions{})
	if r.DefaultPerPage != 50 || r.FavoritesMinLimit != 50 || r.FetchConcurrency != 8 {
		t.Fatalf("defaults = %d/%d/%d; want 50/50/8", r.DefaultPerPage, r.FavoritesMinLimit, r.FetchConcurrency)
	}
	r = NewGistResolver(newFakeStore(), newFakeSource(), ResolverOptions{DefaultPerPage: 10, FavoritesMinLimit: 5, FetchConcurrency: 3})
	if r.DefaultPerPage != 10 || r.FavoritesMinLimit != 5 || r.FetchConcurrency != 3 {
		t.Fatalf("options not applied: %+v", r)
	}
}

// ----- PublicGistsForUser -----

func TestPublicGistsForUser_OrderFavoritesAndPageInfo(t *testing.T) {
	src := newFakeSource()
	src.userPage = &github.UserGistsPage{
		Gists: []github.RawGist{rawGist("g3", "z.go", "a.go"), rawGist("g1"), rawGist("g2")},
		Link:  `<https://api.github.com/users/octo/gists?page=3>; rel="next"`,
	}
	store := newFakeStore("g1")
	store.upstream = src
	r := NewGistResolver(store, src, ResolverOptions{})

	conn, err := r.PublicGistsForUser(context.Background(), "octo", 2, 0)
	if err != nil {
		t.Fatalf("PublicGistsForUser: %v", err)
	}
	if src.user != "octo" || src.opts.Page != 2 || src.opts.PerPage != 50 {
		t.Fatalf("upstream args = %q %+v", src.user, src.opts)
	}
	if len(conn.Nodes) != 3 || conn.Nodes[0].ID != "g3" || conn.Nodes[1].ID != "g1" || conn.Nodes[2].ID != "g2" {
		t.Fatalf("nodes out of upstream order: %+v", conn.Nodes)
	}
	if conn.Nodes[0].Meta.IsFavorite || !conn.Nodes[1].Meta.IsFavorite || conn.Nodes[2].Meta.IsFavorite {
		t.Fatalf("isFavorite flags wrong: %+v", conn.Nodes)
	}
	if f := conn.Nodes[0].Files; len(f) != 2 || f[0].Filename != "z.go" || f[1].Filename != "a.go" {
		t.Fatalf("files reordered: %+v", f)
	}
	if !conn.PageInfo.HasNextPage {
		t.Fatalf("expected hasNextPage from Link header")
	}

	if len(store.findCalls) != 1 || fmt.Sprint(store.findCalls[0]) != "[g3 g1 g2]" {
		t.Fatalf("favorites lookup = %v", store.findCalls)
	}
	if store.fetchedAtFind[0] != 1 {
		t.Fatalf("favorites lookup ran before the upstream fetch")
	}
}

func TestPublicGistsForUser_NoFloorOnPerPage(t *testing.T) {
	src := newFakeSource()
	src.userPage = &github.UserGistsPage{}
	r := NewGistResolver(newFakeStore(), src, ResolverOptions{})

	if _, err := r.PublicGistsForUser(context.Background(), "octo", 0, 5); err != nil {
		t.Fatalf("PublicGistsForUser: %v", err)
	}
	if src.opts.PerPage != 5 || src.opts.Page != 0 {
		t.Fatalf("opts = %+v; want per_page=5 untouched", src.opts)
	}
}

func TestPublicGistsForUser_EmptyPage(t *testing.T) {
	src := newFakeSource()
	src.userPage = &github.UserGistsPage{Gists: []github.RawGist{}}
	r := NewGistResolver(newFakeStore(), src, ResolverOptions{})

	conn, err := r.PublicGistsForUser(context.Background(), "octo", 1, 10)
	if err != nil {
		t.Fatalf("PublicGistsForUser: %v", err)
	}
	if conn.Nodes == nil || len(conn.Nodes) != 0 || conn.PageInfo.HasNextPage {
		t.Fatalf("expected empty non-nil nodes without next page, got %+v", conn)
	}
}

func TestPublicGistsForUser_BlankUsername(t *testing.T) {
	src := newFakeSource()
	r := NewGistResolver(newFakeStore(), src, ResolverOptions{})
	if _, err := r.PublicGistsForUser(context.Background(), "  ", 1, 10); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("err = %v; want ErrInvalidUsername", err)
	}
	if src.users != 0 {
		t.Fatalf("upstream should not be called")
	}
}

func TestPublicGistsForUser_UpstreamErrorsClassified(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"not found", &github.APIError{StatusCode: 404, Message: "Not Found"}, ErrUpstreamNotFound},
		{"server error", &github.APIError{StatusCode: 502, Message: "Bad Gateway"}, ErrUpstreamUnavailable},
		{"transport", fmt.Errorf("dial: %w", github.ErrUnavailable), ErrUpstreamUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := newFakeSource()
			src.userErr = tc.err
			store := newFakeStore()
			r := NewGistResolver(store, src, ResolverOptions{})

			_, err := r.PublicGistsForUser(context.Background(), "octo", 1, 10)
			if !errors.Is(err, tc.want) || !errors.Is(err, tc.err) {
				t.Fatalf("err = %v; want %v wrapping %v", err, tc.want, tc.err)
			}
			if len(store.findCalls) != 0 {
				t.Fatalf("store should not be consulted after an upstream failure")
			}
		})
	}
}

func TestPublicGistsForUser_StoreErrorPropagates(t *testing.T) {
	src := newFakeSource()
	src.userPage = &github.UserGistsPage{Gists: []github.RawGist{rawGist("g1")}}
	store := newFakeStore()
	store.findErr = storeErr("find favorites", errors.New("disk I/O error"))
	r := NewGistResolver(store, src, ResolverOptions{})

	if _, err := r.PublicGistsForUser(context.Background(), "octo", 1, 10); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v; want ErrStoreUnavailable", err)
	}
}

// ----- GistByID -----

func TestGistByID_FoundWithFavoriteFlag(t *testing.T) {
	src := newFakeSource(rawGist("g1", "b.txt", "a.txt"), rawGist("g2"))
	r := NewGistResolver(newFakeStore("g1"), src, ResolverOptions{})

	l, err := r.GistByID(context.Background(), "g1")
	if err != nil || !l.Found() {
		t.Fatalf("GistByID: %+v %v", l, err)
	}
	if !l.View.Meta.IsFavorite || l.View.Files[0].Filename != "b.txt" {
		t.Fatalf("unexpected view: %+v", l.View)
	}

	l, err = r.GistByID(context.Background(), "g2")
	if err != nil || !l.Found() || l.View.Meta.IsFavorite {
		t.Fatalf("g2 should be present and not favorite: %+v %v", l, err)
	}
}

func TestGistByID_UnknownIsAbsentWithCause(t *testing.T) {
	r := NewGistResolver(newFakeStore(), newFakeSource(), ResolverOptions{})

	l, err := r.GistByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("upstream failures must not surface as errors: %v", err)
	}
	if l.Found() || !errors.Is(l.Cause, ErrUpstreamNotFound) {
		t.Fatalf("lookup = %+v; want absent with not-found cause", l)
	}
}

func TestGistByID_UpstreamUnavailableIsAbsent(t *testing.T) {
	src := newFakeSource(rawGist("g1"))
	src.fail["g1"] = &github.APIError{StatusCode: 503, Message: "down"}
	r := NewGistResolver(newFakeStore("g1"), src, ResolverOptions{})

	l, err := r.GistByID(context.Background(), "g1")
	if err != nil || l.Found() || !errors.Is(l.Cause, ErrUpstreamUnavailable) {
		t.Fatalf("lookup = %+v err=%v", l, err)
	}
}

func TestGistByID_StoreErrorWins(t *testing.T) {
	src := newFakeSource()
	store := newFakeStore()
	store.findErr = storeErr("find favorites", errors.New("connection refused"))
	r := NewGistResolver(store, src, ResolverOptions{})

	// Even with the gist missing upstream, a failing store is an error.
	if _, err := r.GistByID(context.Background(), "nope"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v; want ErrStoreUnavailable", err)
	}
}

func TestGistByID_BlankID(t *testing.T) {
	src := newFakeSource()
	r := NewGistResolver(newFakeStore(), src, ResolverOptions{})
	if _, err := r.GistByID(context.Background(), ""); !errors.Is(err, ErrInvalidGistID) {
		t.Fatalf("err = %v; want ErrInvalidGistID", err)
	}
	if len(src.gistCalls) != 0 {
		t.Fatalf("upstream should not be called")
	}
}

// ----- Favorite / Unfavorite -----

func TestFavoriteThenUnfavorite(t *testing.T) {
	src := newFakeSource(rawGist("g1"))
	store := newFakeStore()
	r := NewGistResolver(store, src, ResolverOptions{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		l, err := r.Favorite(ctx, "g1")
		if err != nil || !l.Found() || !l.View.Meta.IsFavorite {
			t.Fatalf("favorite #%d: %+v %v", i+1, l, err)
		}
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("marks = %d; want 1 after repeated favorite", n)
	}

	for i := 0; i < 2; i++ {
		l, err := r.Unfavorite(ctx, "g1")
		if err != nil || !l.Found() || l.View.Meta.IsFavorite {
			t.Fatalf("unfavorite #%d: %+v %v", i+1, l, err)
		}
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Fatalf("marks = %d; want 0 after unfavorite", n)
	}
}

func TestFavorite_UnknownGistKeepsOrphanMark(t *testing.T) {
	store := newFakeStore()
	r := NewGistResolver(store, newFakeSource(), ResolverOptions{})

	l, err := r.Favorite(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Favorite: %v", err)
	}
	if l.Found() || !errors.Is(l.Cause, ErrUpstreamNotFound) {
		t.Fatalf("lookup = %+v; want absent", l)
	}
	if _, ok := store.marks["ghost"]; !ok {
		t.Fatalf("mark should be recorded even though the gist is absent")
	}
}

func TestFavorite_StoreFailureSkipsFetch(t *testing.T) {
	src := newFakeSource(rawGist("g1"))
	store := newFakeStore()
	store.markErr = storeErr("mark favorite", errors.New("read-only database"))
	r := NewGistResolver(store, src, ResolverOptions{})

	if _, err := r.Favorite(context.Background(), "g1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v; want ErrStoreUnavailable", err)
	}
	if _, err := r.Unfavorite(context.Background(), "g1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v; want ErrStoreUnavailable", err)
	}
	if len(src.gistCalls) != 0 {
		t.Fatalf("gist should not be fetched after a failed mutation")
	}
}

func TestFavorite_BlankID(t *testing.T) {
	r := NewGistResolver(newFakeStore(), newFakeSource(), ResolverOptions{})
	if _, err := r.Favorite(context.Background(), " "); !errors.Is(err, ErrInvalidGistID) {
		t.Fatalf("err = %v", err)
	}
	if _, err := r.Unfavorite(context.Background(), ""); !errors.Is(err, ErrInvalidGistID) {
		t.Fatalf("err = %v", err)
	}
}

// ----- FavoriteGists -----

func TestFavoriteGists_StoreOrderAndFlags(t *testing.T) {
	src := newFakeSource(rawGist("a"), rawGist("b"), rawGist("c"))
	store := newFakeStore("c", "a", "b")
	r := NewGistResolver(store, src, ResolverOptions{})

	page, err := r.FavoriteGists(context.Background(), 0, 0)
	if err != nil || page.Cause != nil {
		t.Fatalf("FavoriteGists: %+v %v", page, err)
	}
	if len(page.Views) != 3 || page.Views[0].ID != "c" || page.Views[1].ID != "a" || page.Views[2].ID != "b" {
		t.Fatalf("views out of store order: %+v", page.Views)
	}
	for _, v := range page.Views {
		if !v.Meta.IsFavorite {
			t.Fatalf("%s should be favorite", v.ID)
		}
	}
	if len(store.findCalls) != 1 || fmt.Sprint(store.findCalls[0]) != "[c a b]" {
		t.Fatalf("mark recheck = %v", store.findCalls)
	}
}

func TestFavoriteGists_LimitFloorAndOffset(t *testing.T) {
	cases := []struct {
		offset, limit      int
		wantOff, wantLimit int
	}{
		{0, 10, 0, 50},
		{0, 0, 0, 50},
		{-3, -1, 0, 50},
		{5, 80, 5, 80},
	}
	for _, tc := range cases {
		store := newFakeStore()
		r := NewGistResolver(store, newFakeSource(), ResolverOptions{})
		if _, err := r.FavoriteGists(context.Background(), tc.offset, tc.limit); err != nil {
			t.Fatalf("FavoriteGists(%d,%d): %v", tc.offset, tc.limit, err)
		}
		if store.listOffset != tc.wantOff || store.listLimit != tc.wantLimit {
			t.Fatalf("FavoriteGists(%d,%d) read store with (%d,%d); want (%d,%d)",
				tc.offset, tc.limit, store.listOffset, store.listLimit, tc.wantOff, tc.wantLimit)
		}
	}
}

func TestFavoriteGists_FailClosed(t *testing.T) {
	src := newFakeSource(rawGist("g1"), rawGist("g2"), rawGist("g3"))
	src.fail["g2"] = &github.APIError{StatusCode: 500, Message: "boom"}
	r := NewGistResolver(newFakeStore("g1", "g2", "g3"), src, ResolverOptions{})

	page, err := r.FavoriteGists(context.Background(), 0, 50)
	if err != nil {
		t.Fatalf("upstream failures must not surface as errors: %v", err)
	}
	if page.Views == nil || len(page.Views) != 0 {
		t.Fatalf("expected empty non-nil views, got %+v", page.Views)
	}
	if !errors.Is(page.Cause, ErrUpstreamUnavailable) {
		t.Fatalf("cause = %v; want ErrUpstreamUnavailable", page.Cause)
	}
}

func TestFavoriteGists_OrphanMarkEmptiesPage(t *testing.T) {
	r := NewGistResolver(newFakeStore("g1", "deleted"), newFakeSource(rawGist("g1")), ResolverOptions{})

	page, err := r.FavoriteGists(context.Background(), 0, 50)
	if err != nil || len(page.Views) != 0 || !errors.Is(page.Cause, ErrUpstreamNotFound) {
		t.Fatalf("page = %+v err=%v", page, err)
	}
}

func TestFavoriteGists_RecheckReflectsCurrentMarks(t *testing.T) {
	store := newFakeStore("g1", "g2")
	store.hideOnFind = map[string]bool{"g2": true}
	r := NewGistResolver(store, newFakeSource(rawGist("g1"), rawGist("g2")), ResolverOptions{})

	page, err := r.FavoriteGists(context.Background(), 0, 50)
	if err != nil || len(page.Views) != 2 {
		t.Fatalf("page = %+v err=%v", page, err)
	}
	if !page.Views[0].Meta.IsFavorite || page.Views[1].Meta.IsFavorite {
		t.Fatalf("flags should come from the recheck: %+v", page.Views)
	}
}

func TestFavoriteGists_EmptyStoreSkipsUpstream(t *testing.T) {
	src := newFakeSource()
	store := newFakeStore()
	r := NewGistResolver(store, src, ResolverOptions{})

	page, err := r.FavoriteGists(context.Background(), 0, 50)
	if err != nil || page.Views == nil || len(page.Views) != 0 || page.Cause != nil {
		t.Fatalf("page = %+v err=%v", page, err)
	}
	if len(src.gistCalls) != 0 || len(store.findCalls) != 0 {
		t.Fatalf("no fetch or mark lookup expected for an empty store")
	}
}

func TestFavoriteGists_StoreErrors(t *testing.T) {
	store := newFakeStore("g1")
	store.listErr = storeErr("list favorites", errors.New("no such table"))
	r := NewGistResolver(store, newFakeSource(rawGist("g1")), ResolverOptions{})
	if _, err := r.FavoriteGists(context.Background(), 0, 50); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("list err = %v", err)
	}

	store = newFakeStore("g1")
	store.findErr = storeErr("find favorites", errors.New("no such table"))
	r = NewGistResolver(store, newFakeSource(rawGist("g1")), ResolverOptions{})
	if _, err := r.FavoriteGists(context.Background(), 0, 50); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("mark lookup err = %v", err)
	}
}

func TestCountFavorites(t *testing.T) {
	rec := recordSpans(t)

	store := newFakeStore("a", "b")
	r := NewGistResolver(store, newFakeSource(), ResolverOptions{})
	if n, err := r.CountFavorites(context.Background()); err != nil || n != 2 {
		t.Fatalf("count = %d err=%v", n, err)
	}
	store.listErr = storeErr("count favorites", errors.New("disk I/O error"))
	if _, err := r.CountFavorites(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v; want ErrStoreUnavailable", err)
	}

	var spans []sdktrace.ReadOnlySpan
	for _, sp := range rec.Ended() {
		if sp.Name() == "CountFavorites" {
			spans = append(spans, sp)
		}
	}
	if len(spans) != 2 {
		t.Fatalf("CountFavorites spans = %d; want 2", len(spans))
	}
	var total int64 = -1
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "favorites.total" {
			total = kv.Value.AsInt64()
		}
	}
	if total != 2 {
		t.Fatalf("favorites.total = %d; want 2", total)
	}
	if spans[1].Status().Code != codes.Error {
		t.Fatalf("failed count should mark the span as error, got %v", spans[1].Status())
	}
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

// ----- Concurrency -----

// rendezvous opens once want parties are waiting. Parties that wait longer
// than rendezvousTimeout give up, so a sequential caller fails instead of
// hanging.
type rendezvous struct {
	mu      sync.Mutex
	want    int
	arrived int
	open    chan struct{}
}

const rendezvousTimeout = 2 * time.Second

func newRendezvous(want int) *rendezvous {
	return &rendezvous{want: want, open: make(chan struct{})}
}

func (rv *rendezvous) wait() bool {
	rv.mu.Lock()
	rv.arrived++
	if rv.arrived == rv.want {
		close(rv.open)
	}
	rv.mu.Unlock()

	select {
	case <-rv.open:
		return true
	case <-time.After(rendezvousTimeout):
		return false
	}
}

var errNotConcurrent = errors.New("call was not concurrent with its peers")

type rendezvousStore struct {
	*fakeStore
	rv *rendezvous
}

func (s rendezvousStore) FindFavorites(ctx context.Context, ids []string) (map[string]struct{}, error) {
	if !s.rv.wait() {
		return nil, errNotConcurrent
	}
	return s.fakeStore.FindFavorites(ctx, ids)
}

type rendezvousSource struct {
	*fakeSource
	rv *rendezvous
}

func (f rendezvousSource) FetchGist(ctx context.Context, id string) (*github.RawGist, error) {
	if !f.rv.wait() {
		return nil, errNotConcurrent
	}
	return f.fakeSource.FetchGist(ctx, id)
}

func TestGistByID_FetchAndMarkLookupOverlap(t *testing.T) {
	rv := newRendezvous(2)
	store := rendezvousStore{newFakeStore("g1"), rv}
	src := rendezvousSource{newFakeSource(rawGist("g1")), rv}
	r := NewGistResolver(store, src, ResolverOptions{})

	l, err := r.GistByID(context.Background(), "g1")
	if err != nil {
		t.Fatalf("mark lookup did not overlap the fetch: %v", err)
	}
	if !l.Found() || l.Cause != nil {
		t.Fatalf("fetch did not overlap the mark lookup: %+v", l)
	}
	if !l.View.Meta.IsFavorite {
		t.Fatalf("g1 should be favorite")
	}
}

func TestFavorite_LookupOverlapsAfterMark(t *testing.T) {
	rv := newRendezvous(2)
	store := rendezvousStore{newFakeStore(), rv}
	src := rendezvousSource{newFakeSource(rawGist("g9")), rv}
	r := NewGistResolver(store, src, ResolverOptions{})

	l, err := r.Favorite(context.Background(), "g9")
	if err != nil || !l.Found() || !l.View.Meta.IsFavorite {
		t.Fatalf("lookup = %+v err=%v", l, err)
	}
}

func TestFavoriteGists_FetchesOverlapWithRecheck(t *testing.T) {
	ids := []string{"g1", "g2", "g3"}
	rv := newRendezvous(len(ids) + 1)
	store := rendezvousStore{newFakeStore(ids...), rv}
	src := rendezvousSource{newFakeSource(rawGist("g1"), rawGist("g2"), rawGist("g3")), rv}
	r := NewGistResolver(store, src, ResolverOptions{})

	page, err := r.FavoriteGists(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("mark recheck did not overlap the fetches: %v", err)
	}
	if page.Cause != nil {
		t.Fatalf("fetches ran one at a time: %v", page.Cause)
	}
	if len(page.Views) != len(ids) {
		t.Fatalf("views = %d; want %d", len(page.Views), len(ids))
	}
	for i, v := range page.Views {
		if v.ID != ids[i] || !v.Meta.IsFavorite {
			t.Fatalf("view %d = %+v", i, v)
		}
	}
}

type countingSource struct {
	*fakeSource
	mu       sync.Mutex
	inflight int
	peak     int
}

func (f *countingSource) FetchGist(ctx context.Context, id string) (*github.RawGist, error) {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	f.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
	return f.fakeSource.FetchGist(ctx, id)
}

func TestFavoriteGists_FetchConcurrencyCap(t *testing.T) {
	var ids []string
	var gists []github.RawGist
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("g%d", i)
		ids = append(ids, id)
		gists = append(gists, rawGist(id))
	}
	src := &countingSource{fakeSource: newFakeSource(gists...)}
	r := NewGistResolver(newFakeStore(ids...), src, ResolverOptions{FetchConcurrency: 2})

	page, err := r.FavoriteGists(context.Background(), 0, 0)
	if err != nil || page.Cause != nil || len(page.Views) != 6 {
		t.Fatalf("page = %+v err=%v", page, err)
	}
	if src.peak > 2 {
		t.Fatalf("peak in-flight fetches = %d; want <= 2", src.peak)
	}
	if len(src.gistCalls) != 6 {
		t.Fatalf("fetches = %d; want 6", len(src.gistCalls))
	}
}

// ----- Errors -----

func TestClassifyUpstream(t *testing.T) {
	if classifyUpstream(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	forbidden := &github.APIError{StatusCode: 403, Message: "Resource not accessible"}
	if err := classifyUpstream(forbidden); !errors.Is(err, ErrUpstreamUnavailable) || !errors.Is(err, forbidden) {
		t.Fatalf("unclassified errors should map to unavailable: %v", err)
	}
	if err := classifyUpstream(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancellation should stay reachable: %v", err)
	}
}
