// Package server wires the reference code store: PostgreSQL storage, the
// HTTP API and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/logging"
	"github.com/dmitrijs2005/scankeeper/internal/server/config"
	"github.com/dmitrijs2005/scankeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/scankeeper/internal/server/metrics"
	"github.com/dmitrijs2005/scankeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/scankeeper/internal/server/services"
)

const limiterCleanupInterval = time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	limiter *httpapi.RateLimiter
	handler http.Handler
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return newApp(cfg, logger, db, services.NewCodeService(db, rm)), nil
}

func newApp(cfg *config.Config, logger logging.Logger, db *sql.DB, codes httpapi.CodeService) *App {
	limiter := httpapi.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	router := httpapi.NewRouter(httpapi.NewHandler(codes, logger), limiter, metrics.New())
	return &App{config: cfg, logger: logger, db: db, limiter: limiter, handler: router}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	ln, err := net.Listen("tcp", app.config.ListenAddr)
	if err != nil {
		return err
	}
	return app.serve(ctx, ln)
}

func (app *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	app.limiter.StartCleanup(ctx, limiterCleanupInterval)

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.ShutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}

func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}
