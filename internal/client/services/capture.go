package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/client/models"
	"github.com/dmitrijs2005/scankeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/scankeeper/internal/common"
	"github.com/dmitrijs2005/scankeeper/internal/logging"
)

// DefaultDedupWindow is how long an identical scan is treated as a repeat.
const DefaultDedupWindow = 2 * time.Second

// Op names the background operation an Outcome belongs to.
type Op string

const (
	OpPush   Op = "push"
	OpDelete Op = "delete"
	OpResync Op = "resync"
)

// Outcome is the result of a background sync started by the controller.
type Outcome struct {
	Op       Op
	RecordID string
	Err      error
}

// CaptureController turns scan and delete events into durable local changes
// and starts the matching sync in the background.
type CaptureController struct {
	records records.Repository
	engine  *SyncEngine
	logger  logging.Logger
	window  time.Duration
	now     func() time.Time

	// OnResult, when set, receives every background outcome. It is called
	// from the background goroutine.
	OnResult func(Outcome)

	mu   sync.Mutex
	seen map[dedupKey]time.Time

	wg     sync.WaitGroup
	base   context.Context
	cancel context.CancelFunc
}

type dedupKey struct {
	payload   string
	symbology string
}

type CaptureOption func(*CaptureController)

// WithCaptureClock replaces time.Now for the dedup window.
func WithCaptureClock(now func() time.Time) CaptureOption {
	return func(c *CaptureController) { c.now = now }
}

// WithDedupWindow overrides DefaultDedupWindow. Zero disables dedup.
func WithDedupWindow(d time.Duration) CaptureOption {
	return func(c *CaptureController) { c.window = d }
}

func NewCaptureController(repo records.Repository, engine *SyncEngine, logger logging.Logger, opts ...CaptureOption) *CaptureController {
	base, cancel := context.WithCancel(context.Background())
	c := &CaptureController{
		records: repo,
		engine:  engine,
		logger:  logger.With("module", "capture"),
		window:  DefaultDedupWindow,
		now:     time.Now,
		seen:    make(map[dedupKey]time.Time),
		base:    base,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnScan stores a scanned code and pushes it in the background. The record
// is returned once it is durable locally. A repeat of the last accepted
// identical scan inside the dedup window is dropped and (nil, nil) returned.
func (c *CaptureController) OnScan(ctx context.Context, payload, symbology string) (*models.Record, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidCapture)
	}

	key := dedupKey{payload: payload, symbology: models.NormalizeSymbology(symbology)}
	prev, reserved := c.reserve(key)
	if !reserved {
		c.logger.Debug(ctx, "duplicate scan dropped", "symbology", key.symbology)
		return nil, nil
	}

	rec, err := c.records.Insert(ctx, payload, key.symbology)
	if err != nil {
		c.release(key, prev)
		if errors.Is(err, common.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCapture, err)
		}
		return nil, err
	}
	c.logger.Info(ctx, "scan captured", "id", rec.ID, "symbology", rec.Symbology)

	c.background(OpPush, rec.ID, c.engine.PushOne)
	return rec, nil
}

// reserve claims the dedup slot for key. It returns the previous acceptance
// time so a failed insert can give the slot back.
func (c *CaptureController) reserve(key dedupKey) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	prev, ok := c.seen[key]
	if ok && c.window > 0 && now.Sub(prev) < c.window {
		return prev, false
	}
	c.seen[key] = now
	c.prune(now)
	return prev, true
}

func (c *CaptureController) release(key dedupKey, prev time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev.IsZero() {
		delete(c.seen, key)
		return
	}
	c.seen[key] = prev
}

// prune drops entries older than the window. Caller holds c.mu.
func (c *CaptureController) prune(now time.Time) {
	for k, t := range c.seen {
		if now.Sub(t) >= c.window {
			delete(c.seen, k)
		}
	}
}

// OnDeleteRequest hides or purges the record at once and finishes the remote
// delete in the background when one is needed.
func (c *CaptureController) OnDeleteRequest(ctx context.Context, id string) error {
	purged, err := c.engine.BeginDeletion(ctx, id)
	if err != nil {
		return err
	}
	if purged {
		c.emit(Outcome{Op: OpDelete, RecordID: id})
		return nil
	}
	c.background(OpDelete, id, c.engine.PushDeletion)
	return nil
}

// Resync retries a record the remote store rejected earlier. The record must
// exist; the push itself runs in the background.
func (c *CaptureController) Resync(ctx context.Context, id string) error {
	if _, err := c.records.Get(ctx, id); err != nil {
		return err
	}
	c.background(OpResync, id, c.engine.Resync)
	return nil
}

func (c *CaptureController) background(op Op, id string, fn func(context.Context, string) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := fn(c.base, id)
		if err != nil {
			c.logger.Warn(c.base, "background sync failed", "op", string(op), "id", id, "error", err)
		}
		c.emit(Outcome{Op: op, RecordID: id, Err: err})
	}()
}

func (c *CaptureController) emit(o Outcome) {
	if c.OnResult != nil {
		c.OnResult(o)
	}
}

// Wait blocks until all background work started so far has finished.
func (c *CaptureController) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight background calls and waits for them. Records they
// leave pending are picked up by the next full sync.
func (c *CaptureController) Close() {
	c.cancel()
	c.wg.Wait()
}
