package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-solutions/internal/account"
	"github.com/p-n-ai/pai-solutions/internal/auth"
	"github.com/p-n-ai/pai-solutions/internal/billing"
	"github.com/p-n-ai/pai-solutions/internal/content"
	"github.com/p-n-ai/pai-solutions/internal/export"
	"github.com/p-n-ai/pai-solutions/internal/httpapi"
	"github.com/p-n-ai/pai-solutions/internal/platform/cache"
	"github.com/p-n-ai/pai-solutions/internal/platform/config"
	"github.com/p-n-ai/pai-solutions/internal/platform/database"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("reading .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, c config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// stores are the persistence backends the handler is built on.
type stores struct {
	content  content.Store
	accounts account.Store
	ledger   billing.Ledger
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	contentStore, err := content.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	accountStore, err := account.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	ledger, err := billing.NewPostgresLedger(db.Pool)
	if err != nil {
		return err
	}
	st := stores{content: contentStore, accounts: accountStore, ledger: ledger}

	checks := []httpapi.Check{{Name: "database", Ping: db.HealthCheck}}
	var invalidator content.Invalidator = content.NopInvalidator{}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL, "study")
		if err != nil {
			slog.Warn("cache unavailable, continuing without it", "error", err)
		} else {
			defer c.Close()
			st.ledger = billing.NewRedisLedger(c, ledger)
			invalidator = content.NewRedisInvalidator(c)
			checks = append(checks, httpapi.Check{Name: "cache", Ping: c.HealthCheck})
		}
	}

	handler, err := newHandler(cfg, st, invalidator, checks)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newHandler(cfg *config.Config, st stores, invalidator content.Invalidator, checks []httpapi.Check) (http.Handler, error) {
	tokens := auth.NewTokenVerifier(cfg.Auth.JWTSecret)
	sealer, err := auth.NewSealer(cfg.Auth.SessionKey, cfg.Auth.CookieName)
	if err != nil {
		return nil, err
	}
	gate := auth.NewGate(st.accounts)
	svc := content.NewService(st.content, gate, invalidator)

	deps := httpapi.Deps{
		Content:       svc,
		Accounts:      account.NewService(st.accounts, gate),
		Webhooks:      billing.NewProcessor(st.accounts, st.ledger),
		WebhookSecret: cfg.Paystack.SecretKey,
		Exporter:      export.NewExporter(svc, gate),
		Identity:      auth.NewMiddleware(tokens, sealer, cfg.Auth.CookieName),
		Checks:        checks,
	}
	if cfg.HasOAuth() {
		deps.Callback = auth.NewCallback(
			auth.NewOAuthConfig(cfg.Auth.OAuth),
			tokens,
			sealer,
			st.accounts,
			auth.CookieOptions{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure},
		)
	} else {
		slog.Warn("OAuth not configured, login callback disabled")
	}
	return httpapi.NewHandler(deps), nil
}
