package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/dmachibya/faithexercises-api/api"
	"github.com/dmachibya/faithexercises-api/config"
	"github.com/dmachibya/faithexercises-api/progress"
	"github.com/dmachibya/faithexercises-api/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateServe(); err != nil {
			return err
		}
		if err := cfg.ValidateQueue(); err != nil {
			return err
		}
		return runServe(cmd.Context())
	},
}

func newAuth(cfg *config.Config) (*api.Auth, error) {
	role := api.WithAdminRole(cfg.AdminRoleClaim, cfg.AdminRole)
	if cfg.Auth0TestMode {
		return api.NewAuth(nil, cfg.Auth0Audience, "", api.WithTestSecret(cfg.TestJWTSecret), role), nil
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(jwks, cfg.Auth0Audience, "https://"+cfg.Auth0Domain+"/", role), nil
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	auth, err := newAuth(cfg)
	if err != nil {
		return err
	}
	dispatcher, _, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}
	catalog := storage.NewCache(a.store, a.redis, cfg.CacheTTL)
	projector := storage.NewProjector(a.store, a.ledger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))

	api.Register(e, api.Deps{
		Catalog:       catalog,
		Ledger:        a.ledger,
		Progress:      progress.NewLedger(catalog, a.ledger, a.clock, a.logger),
		Reflections:   a.store,
		Notifications: a.store,
		Journal:       a.store,
		Identities:    a.store,
		Users:         projector,
		Dashboard:     projector,
		Notifier:      dispatcher,
		Auth:          auth,
		Deduper:       api.NewRedisDeduper(a.redis, cfg.IdempotencyTTL),
		Health:        []api.Pinger{a.store},
		Clock:         a.clock,
		Location:      cfg.Location(),
		Logger:        a.logger,
	})

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("addr", cfg.ListenAddr()).Info("api listening")
		errCh <- e.Start(cfg.ListenAddr())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("api shutting down")
	return e.Shutdown(shutdownCtx)
}
