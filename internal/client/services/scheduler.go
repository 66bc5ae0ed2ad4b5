package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/backoff"
	"github.com/dmitrijs2005/scankeeper/internal/client/client"
	"github.com/dmitrijs2005/scankeeper/internal/logging"
)

const backoffMultiplier = 2

// Syncer runs one full reconciliation pass.
type Syncer interface {
	FullSync(ctx context.Context) SyncReport
}

// Scheduler runs full sync passes periodically, backing off while passes
// fail, and immediately on Trigger.
type Scheduler struct {
	syncer   Syncer
	logger   logging.Logger
	interval time.Duration
	backoff  *backoff.Backoff
	trigger  chan struct{}

	// OnReport, when set, is called after every pass.
	OnReport func(SyncReport)

	online atomic.Bool
	// OnStatusChange, when set, is called by WatchOnline on every
	// reachability change.
	OnStatusChange func(online bool)
}

func NewScheduler(syncer Syncer, logger logging.Logger, interval, maxBackoff time.Duration) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		logger:   logger.With("module", "scheduler"),
		interval: interval,
		backoff:  backoff.New(interval, maxBackoff, backoffMultiplier),
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a pass as soon as possible. Requests made while one is
// already queued are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run performs a pass right away and then keeps going until ctx is done.
// A pending trigger does not start a pass once ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		wait := s.runOnce(ctx)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.trigger:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// runOnce performs a pass and returns the delay before the next one.
func (s *Scheduler) runOnce(ctx context.Context) time.Duration {
	report := s.syncer.FullSync(ctx)
	if s.OnReport != nil {
		s.OnReport(report)
	}

	if report.OK() {
		s.backoff.Reset()
		return s.interval
	}

	wait := s.backoff.Next()
	s.logger.Warn(ctx, "sync pass incomplete, backing off",
		"failed", report.Failed, "list_error", report.ListErr, "retry_in", wait.String())
	return wait
}

// Online reports the last status observed by WatchOnline.
func (s *Scheduler) Online() bool {
	return s.online.Load()
}

// WatchOnline pings the remote store every interval until ctx is done. A
// transition from offline to online triggers a pass.
func (s *Scheduler) WatchOnline(ctx context.Context, pinger client.Pinger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.checkOnline(ctx, pinger, interval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) checkOnline(ctx context.Context, pinger client.Pinger, timeout time.Duration) {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	err := pinger.Ping(pingCtx)
	cancel()

	online := err == nil
	if s.online.Swap(online) == online {
		return
	}

	if online {
		s.logger.Info(ctx, "remote store reachable")
		s.Trigger()
	} else {
		s.logger.Warn(ctx, "remote store unreachable", "error", err)
	}
	if s.OnStatusChange != nil {
		s.OnStatusChange(online)
	}
}
