package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/client/client"
	"github.com/dmitrijs2005/scankeeper/internal/client/config"
	"github.com/dmitrijs2005/scankeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/scankeeper/internal/client/services"
	"github.com/dmitrijs2005/scankeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	records   records.Repository
	pinger    client.Pinger
	engine    *services.SyncEngine
	capture   *services.CaptureController
	scheduler *services.Scheduler
	out       io.Writer

	mu   sync.Mutex
	mode Mode
	stop context.CancelFunc

	// bg tracks the scheduler and the online watcher.
	bg sync.WaitGroup
}

// NewApp opens the local database and wires the sync machinery. Close
// releases what NewApp acquired.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	remote := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	repo := records.NewSQLiteRepository(db)
	engine := services.NewSyncEngine(repo, remote, logger, c.RequestTimeout)

	a := &App{
		config:    c,
		logger:    logger,
		db:        db,
		records:   repo,
		pinger:    remote,
		engine:    engine,
		capture:   services.NewCaptureController(repo, engine, logger, services.WithDedupWindow(c.DedupWindow)),
		scheduler: services.NewScheduler(engine, logger, c.SyncInterval, c.MaxBackoff),
		out:       os.Stdout,
		mode:      ModeOffline,
	}
	a.scheduler.OnStatusChange = a.onStatusChange
	return a, nil
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), fmt.Sprintf("Switched to %s mode", mode))
	}
}

func (a *App) onStatusChange(online bool) {
	if online {
		a.setMode(ModeOnline)
		return
	}
	a.setMode(ModeOffline)
}

// StartOnlineStatusWatcher probes the server every interval until ctx is
// done. Coming back online starts a sync pass.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.scheduler.WatchOnline(ctx, a.pinger, interval)
}

// Run starts background sync and reads commands from in until EOF, exit or
// ctx cancellation. When in is not a terminal every line is taken as a scan,
// which is how keyboard-wedge scanners and pipes deliver codes.
func (a *App) Run(ctx context.Context, in io.Reader) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.startBackground(ctx)

	scanner := bufio.NewScanner(in)
	if !interactive(in) {
		runScannerInput(ctx, a, scanner, a.out)
		a.capture.Wait()
		return
	}

	fmt.Fprintln(a.out, "Welcome to scankeeper (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, scanner, a.out)
}

// startBackground launches the sync scheduler and the online watcher. They
// stop when ctx is done or Close is called.
func (a *App) startBackground(ctx context.Context) {
	ctx, stop := context.WithCancel(ctx)
	a.mu.Lock()
	a.stop = stop
	a.mu.Unlock()

	a.bg.Add(2)
	go func() {
		defer a.bg.Done()
		a.scheduler.Run(ctx)
	}()
	go func() {
		defer a.bg.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()
}

func (a *App) getStatus() string {
	return fmt.Sprintf("(%s)", a.Mode())
}

// Close stops background work, waits for a sync pass in progress and closes
// the database. Records left pending are pushed on the next start.
func (a *App) Close() error {
	a.mu.Lock()
	stop := a.stop
	a.mu.Unlock()
	if stop != nil {
		stop()
	}

	a.capture.Close()
	a.bg.Wait()
	return a.db.Close()
}
