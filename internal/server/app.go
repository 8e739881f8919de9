// Package server initializes and runs the credential vault server.
// It opens the database, applies migrations, wires services onto the HTTP
// endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/backup"
	"github.com/dmitrijs2005/credvault/internal/server/config"
	"github.com/dmitrijs2005/credvault/internal/server/filestore"
	"github.com/dmitrijs2005/credvault/internal/server/httpapi"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credvault/internal/server/services"
	"github.com/dmitrijs2005/credvault/internal/server/throttle"
	"golang.org/x/time/rate"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	rateLimiter *httpapi.IPRateLimiter
	handler     http.Handler
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	files := filestore.New(cfg.FileStoreRoot)
	th := throttle.New(rm.LoginAttempts(db))

	userService := services.NewUserService(db, rm, th, files, cfg, logger)
	resetService := services.NewResetService(db, rm, &services.LogMailer{Logger: logger}, cfg, logger)
	credentialService := services.NewCredentialService(db, rm, files, logger)
	deviceService := services.NewDeviceService(db, rm, logger)
	backupService := backup.NewService(files, cfg, logger)

	// 10 requests per minute per IP on the pre-auth routes.
	rateLimiter := httpapi.NewIPRateLimiter(rate.Limit(10.0/60.0), 10)

	handler := httpapi.NewRouter(&httpapi.RouterDeps{
		DB:          db,
		Config:      cfg,
		Logger:      logger,
		RateLimiter: rateLimiter,
		Users:       userService,
		Reset:       resetService,
		Credentials: credentialService,
		Devices:     deviceService,
		Backup:      backupService,
		Captcha:     services.AllowAllCaptcha{},
	})

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		rateLimiter: rateLimiter,
		handler:     handler,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			app.logger.Error(ctx, "server error", "error", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}

	app.rateLimiter.Stop()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}

	app.logger.Info(ctx, "Server stopped")
}
