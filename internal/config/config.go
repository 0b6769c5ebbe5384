// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the favorites database, the GitHub client,
// rate limiting, and observability.
package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// GitHubConfig defines how the upstream gist API is reached.
type GitHubConfig struct {
	BaseURL   string        // GITHUB_API_URL
	Token     string        // GITHUB_TOKEN (optional; raises the upstream rate limit)
	Timeout   time.Duration // GITHUB_TIMEOUT, per upstream request
	RPS       float64       // GITHUB_RPS, outbound pacing; 0 disables
	UserAgent string        // GITHUB_USER_AGENT
}

// PagingConfig defines listing defaults.
type PagingConfig struct {
	DefaultPerPage    int // DEFAULT_PER_PAGE for user gist listings
	FavoritesMinLimit int // FAVORITES_MIN_LIMIT, smallest favorites page read from the store
	FetchConcurrency  int // FAVORITES_FETCH_CONCURRENCY, GitHub fetches in flight per favorites listing
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-gist-favorites")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DatabaseURL string // SQLite path, file: URL, postgres:// or mysql://
	GitHub      GitHubConfig
	Paging      PagingConfig

	// Rate limiting
	RateRPS           float64 // tokens per second (>= 0)
	RateBurst         int     // bucket size (>= 1)
	RateFavoritesCost int     // tokens charged per favorites listing (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DatabaseURL: getenv("DATABASE_URL", "gists.db"),
		GitHub: GitHubConfig{
			BaseURL:   strings.TrimRight(getenv("GITHUB_API_URL", "https://api.github.com"), "/"),
			Token:     getenv("GITHUB_TOKEN", ""),
			Timeout:   getdur("GITHUB_TIMEOUT", 10*time.Second),
			RPS:       getfloat("GITHUB_RPS", 0),
			UserAgent: getenv("GITHUB_USER_AGENT", "go-gist-favorites"),
		},
		Paging: PagingConfig{
			DefaultPerPage:    getint("DEFAULT_PER_PAGE", 50),
			FavoritesMinLimit: getint("FAVORITES_MIN_LIMIT", 50),
			FetchConcurrency:  getint("FAVORITES_FETCH_CONCURRENCY", 8),
		},

		// Rate limiting
		RateRPS:           getfloat("RATE_RPS", 5.0),
		RateBurst:         getint("RATE_BURST", 10),
		RateFavoritesCost: getint("RATE_FAVORITES_COST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-gist-favorites"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.validate()
}

// validate reports the first violated rule, in declaration order.
func (cfg Config) validate() error {
	rules := []struct {
		bad bool
		msg string
	}{
		{!oneOf(cfg.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"),
			"LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{strings.TrimSpace(cfg.Port) == "", "PORT must not be empty"},
		{cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0,
			"timeouts must be positive durations"},
		{cfg.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0"},
		{strings.TrimSpace(cfg.DatabaseURL) == "", "DATABASE_URL must not be empty"},
		{!absoluteURL(cfg.GitHub.BaseURL), "GITHUB_API_URL must be an absolute URL"},
		{cfg.GitHub.Timeout <= 0, "GITHUB_TIMEOUT must be > 0"},
		{cfg.GitHub.RPS < 0, "GITHUB_RPS must be >= 0"},
		{cfg.Paging.DefaultPerPage < 1 || cfg.Paging.DefaultPerPage > 100, "DEFAULT_PER_PAGE must be between 1 and 100"},
		{cfg.Paging.FavoritesMinLimit < 1, "FAVORITES_MIN_LIMIT must be >= 1"},
		{cfg.Paging.FetchConcurrency < 1, "FAVORITES_FETCH_CONCURRENCY must be >= 1"},
		{cfg.RateRPS < 0, "RATE_RPS must be >= 0"},
		{cfg.RateBurst < 1, "RATE_BURST must be >= 1"},
		{cfg.RateFavoritesCost < 1, "RATE_FAVORITES_COST must be >= 1"},
		{cfg.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0"},
		{cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	}
	for _, r := range rules {
		if r.bad {
			return errors.New(r.msg)
		}
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
