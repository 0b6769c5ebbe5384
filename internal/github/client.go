// Package github is a small client for the public gist endpoints of the
// GitHub REST API:
//
//   - GET /users/{username}/gists?per_page&page  (one page + Link header)
//   - GET /gists/{id}
//
// The client performs no retries. Failures are returned as *APIError or as
// wrapped transport errors; both classify with errors.Is against ErrNotFound
// and ErrUnavailable. An optional token-bucket limiter paces outbound calls.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public GitHub API root.
	DefaultBaseURL = "https://api.github.com"

	// apiVersion pins the REST API version header.
	apiVersion = "2022-11-28"

	defaultUserAgent = "go-gist-favorites"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string
	// Token is an optional personal access token; only raises the upstream quota.
	Token string
	// UserAgent is sent on every request (GitHub rejects requests without one).
	UserAgent string
	// HTTPClient is shared process-wide. Defaults to a client with a 10s timeout.
	HTTPClient *http.Client
	// Limiter paces outbound requests when non-nil.
	Limiter *rate.Limiter
}

// Client fetches gists from GitHub. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient validates cfg and returns a ready Client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("github: invalid base URL %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &Client{
		baseURL:    base,
		token:      strings.TrimSpace(cfg.Token),
		userAgent:  ua,
		httpClient: hc,
		limiter:    cfg.Limiter,
	}, nil
}

// FetchUserGists returns one page of username's public gists and the raw
// Link header. An unknown user yields ErrNotFound (GitHub answers 404).
func (c *Client) FetchUserGists(ctx context.Context, username string, opts ListOptions) (*UserGistsPage, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("github: username is empty")
	}

	q := url.Values{}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}

	var gists []RawGist
	hdr, err := c.get(ctx, "list_user_gists", "/users/"+url.PathEscape(username)+"/gists", q, &gists)
	if err != nil {
		return nil, err
	}
	if gists == nil {
		gists = []RawGist{}
	}
	return &UserGistsPage{Gists: gists, Link: hdr.Get("Link")}, nil
}

// FetchGist returns a single gist by id.
func (c *Client) FetchGist(ctx context.Context, id string) (*RawGist, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("github: gist id is empty")
	}

	var g RawGist
	if _, err := c.get(ctx, "get_gist", "/gists/"+url.PathEscape(id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// get issues a GET against path, decodes a 2xx JSON body into out and
// returns the response headers. It records one span and one metric sample
// per call.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) (hdr http.Header, err error) {
	tr := otel.Tracer("github/Client")
	ctx, span := tr.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.route", path)),
	)
	start := time.Now()
	defer func() {
		observe(op, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.limiter != nil {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return nil, fmt.Errorf("github: %s: %w: %w", op, ErrUnavailable, werr)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: GET %s: %w: %w", path, ErrUnavailable, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("github: decoding %s: %w: %w", path, ErrUnavailable, err)
	}
	return resp.Header, nil
}

// parseAPIError reads a GitHub error body into an *APIError.
func parseAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var wire struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &wire) == nil && wire.Message != "" {
		apiErr.Message = wire.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
