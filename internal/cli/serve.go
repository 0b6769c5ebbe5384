package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/tbourn/go-gist-favorites/internal/config"
	"github.com/tbourn/go-gist-favorites/internal/github"
	httpapi "github.com/tbourn/go-gist-favorites/internal/http"
	"github.com/tbourn/go-gist-favorites/internal/observability"
	"github.com/tbourn/go-gist-favorites/internal/repo"
	"github.com/tbourn/go-gist-favorites/internal/services"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 15 * time.Second

func newServeCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts.cfg, opts.Version)
		},
	}
}

// runServe starts tracing and the HTTP server, then blocks until ctx is
// canceled and drains in-flight requests.
func runServe(ctx context.Context, cfg config.Config, version string) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, observability.UpstreamAttrs(cfg.GitHub.BaseURL)...)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	srv, cleanup, err := buildServer(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("github", cfg.GitHub.BaseURL).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// buildServer opens the store, wires the GitHub client and resolver, and
// returns an unstarted server. cleanup closes the store.
func buildServer(cfg config.Config) (*http.Server, func(), error) {
	db, err := repo.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	gh, err := github.NewClient(github.Config{
		BaseURL:    cfg.GitHub.BaseURL,
		Token:      cfg.GitHub.Token,
		UserAgent:  cfg.GitHub.UserAgent,
		HTTPClient: &http.Client{Timeout: cfg.GitHub.Timeout},
		Limiter:    upstreamLimiter(cfg.GitHub.RPS),
	})
	if err != nil {
		closeDB(db)
		return nil, nil, err
	}

	resolver := services.NewGistResolver(services.NewFavoriteStore(db), gh, services.ResolverOptions{
		DefaultPerPage:    cfg.Paging.DefaultPerPage,
		FavoritesMinLimit: cfg.Paging.FavoritesMinLimit,
		FetchConcurrency:  cfg.Paging.FetchConcurrency,
	})

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, resolver, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	return srv, func() { closeDB(db) }, nil
}

// upstreamLimiter paces GitHub calls at rps; 0 disables pacing.
func upstreamLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("close store")
	}
}
