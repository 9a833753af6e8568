package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/core-admin/backend/internal/client"
	"github.com/core-admin/backend/internal/config"
	"github.com/core-admin/backend/internal/db"
	"github.com/core-admin/backend/internal/handler"
	"github.com/core-admin/backend/internal/logging"
	"github.com/core-admin/backend/internal/service"
)

const shutdownTimeout = 10 * time.Second

// store is everything the services need from a storage backend.
type store interface {
	service.UserRepo
	service.GroupRepo
	service.PermissionRepo
	service.TokenRepo
}

type tokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// @title Core Admin API
// @version 1.0
// @description User, group and permission administration with JWT authentication.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens, err := service.NewTokenIssuer(st, cfg.Auth)
	if err != nil {
		return err
	}
	resets, err := service.NewResetTokenGenerator(cfg.Auth.JWTSecret, cfg.Auth.PasswordResetTimeout)
	if err != nil {
		return err
	}

	authSvc := service.NewAuthService(st, tokens, resets, client.NewMailer(cfg.SMTP, logger), logger)
	if err := authSvc.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}

	purgeInterval, err := time.ParseDuration(cfg.Auth.TokenPurgeInterval)
	if err != nil || purgeInterval <= 0 {
		return fmt.Errorf("%w: invalid TOKEN_PURGE_INTERVAL", service.ErrMisconfigured)
	}
	go runTokenJanitor(ctx, tokens, purgeInterval, logger)

	gin.SetMode(cfg.HTTP.GinMode)
	router := handler.NewRouter(cfg.HTTP, handler.Services{
		Auth:        authSvc,
		Users:       service.NewUserService(st),
		Groups:      service.NewGroupService(st),
		Permissions: service.NewPermissionService(st),
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	authSvc.Wait()
	return err
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		return db.NewMemory(), func() {}, nil
	case "postgres", "":
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := db.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE driver %q", cfg.Storage.Driver)
	}
}

// runTokenJanitor deletes expired token rows every interval until ctx is
// canceled.
func runTokenJanitor(ctx context.Context, purger tokenPurger, interval time.Duration, logger *slog.Logger) {
	logger = logger.With("component", "token_janitor")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := purger.PurgeExpired(ctx, now)
			if err != nil {
				logger.Error("failed to purge expired tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired tokens", "count", n)
			}
		}
	}
}
