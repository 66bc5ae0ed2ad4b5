package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/client/client"
	"github.com/dmitrijs2005/scankeeper/internal/client/models"
	"github.com/dmitrijs2005/scankeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/scankeeper/internal/common"
	"github.com/dmitrijs2005/scankeeper/internal/logging"
)

// DefaultRequestTimeout bounds a single remote call when none is configured.
const DefaultRequestTimeout = 10 * time.Second

// RecordError is the failure of one record inside a sync pass.
type RecordError struct {
	ID  string
	Err error
}

// SyncReport summarises a FullSync pass. A pass never fails as a whole;
// per-record failures are counted here instead.
type SyncReport struct {
	// Attempted is the number of records the pass acted on.
	Attempted int
	// Pushed counts records that became synced during the pass.
	Pushed int
	// Deleted counts records purged after their remote delete.
	Deleted int
	// Failed counts records whose remote call or local write failed.
	Failed int
	// Skipped counts rejected records left for manual resync.
	Skipped int
	Errors  []RecordError
	// ListErr is set when the remote view could not be refreshed; the
	// previous view is kept.
	ListErr error
}

// OK reports whether the pass finished without any failure.
func (r SyncReport) OK() bool {
	return r.Failed == 0 && r.ListErr == nil
}

// Err folds the report into a single error, nil when OK.
func (r SyncReport) Err() error {
	if r.OK() {
		return nil
	}
	var errs []error
	if r.ListErr != nil {
		errs = append(errs, fmt.Errorf("refresh remote view: %w", r.ListErr))
	}
	if r.Failed > 0 {
		errs = append(errs, fmt.Errorf("%d of %d records failed to sync", r.Failed, r.Attempted))
	}
	return errors.Join(errs...)
}

// SyncEngine reconciles the local record store with the remote store.
//
// All state changes go through the records.Repository compare-and-set
// transitions and are persisted only after the remote call returned.
// Operations on one record are serialised by a per-record lock; different
// records never wait for each other.
type SyncEngine struct {
	records records.Repository
	remote  client.RemoteStore
	logger  logging.Logger
	timeout time.Duration
	locks   *recordLocks
	now     func() time.Time

	viewMu sync.RWMutex
	view   []models.RemoteRecord
	viewAt time.Time
}

func NewSyncEngine(repo records.Repository, remote client.RemoteStore, logger logging.Logger, timeout time.Duration) *SyncEngine {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &SyncEngine{
		records: repo,
		remote:  remote,
		logger:  logger.With("module", "sync_engine"),
		timeout: timeout,
		locks:   newRecordLocks(),
		now:     time.Now,
	}
}

// PushOne creates the record remotely if it is still pending and marks it
// synced. A record that is synced, pending deletion or gone is left alone
// without a network call. On a transient failure the record stays pending;
// on a rejection it stays pending, is flagged and the *client.RejectedError
// is returned.
func (e *SyncEngine) PushOne(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.records.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return e.push(ctx, rec)
}

// Resync clears a previous rejection and pushes the record again.
func (e *SyncEngine) Resync(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	if err := e.records.ClearRejected(ctx, id); err != nil {
		return err
	}
	rec, err := e.records.Get(ctx, id)
	if err != nil {
		return err
	}
	return e.push(ctx, rec)
}

func (e *SyncEngine) push(ctx context.Context, rec *models.Record) error {
	if rec.SyncState != models.StatePending {
		return nil
	}
	if rec.Rejected {
		return fmt.Errorf("%w: %s", ErrAwaitingResync, rec.LastError)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	remoteID, err := e.remote.Create(callCtx, client.CreateRequest{
		Data:     rec.Payload,
		Type:     rec.Symbology,
		ClientID: rec.ID,
	})
	cancel()

	// the remote call has happened; record its result even if ctx is done
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		return e.fail(ctx, rec, "push", err)
	}

	if err := e.records.MarkSynced(ctx, rec.ID, remoteID); err != nil {
		return err
	}
	e.logger.Info(ctx, "record synced", "id", rec.ID, "remote_id", remoteID)
	return nil
}

// BeginDeletion performs the local half of a user delete. A pending record
// has no remote counterpart and is purged at once (purged is true); a synced
// record is hidden as delete_pending until PushDeletion succeeds.
func (e *SyncEngine) BeginDeletion(ctx context.Context, id string) (purged bool, err error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.records.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return e.beginDeletion(ctx, rec)
}

func (e *SyncEngine) beginDeletion(ctx context.Context, rec *models.Record) (bool, error) {
	switch rec.SyncState {
	case models.StatePending:
		if err := e.records.Purge(ctx, rec.ID); err != nil {
			return false, err
		}
		e.logger.Info(ctx, "unsynced record purged", "id", rec.ID)
		return true, nil
	case models.StateSynced:
		if err := e.records.MarkDeletePending(ctx, rec.ID); err != nil {
			return false, err
		}
		rec.SyncState = models.StateDeletePending
	}
	return false, nil
}

// PushDeletion deletes the record: locally right away if it never reached
// the remote store, otherwise remotely first and then purged. On a
// transient failure the record stays delete_pending for the next pass.
func (e *SyncEngine) PushDeletion(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.records.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	purged, err := e.beginDeletion(ctx, rec)
	if err != nil || purged {
		return err
	}
	_, err = e.deleteRemote(ctx, rec)
	return err
}

// deleteRemote reports whether the record was purged.
func (e *SyncEngine) deleteRemote(ctx context.Context, rec *models.Record) (bool, error) {
	if rec.SyncState != models.StateDeletePending {
		return false, nil
	}

	if rec.RemoteID != "" {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		err := e.remote.Delete(callCtx, rec.RemoteID)
		cancel()
		ctx = context.WithoutCancel(ctx)
		if err != nil {
			return false, e.fail(ctx, rec, "delete", err)
		}
	}

	if err := e.records.Purge(ctx, rec.ID); err != nil {
		return false, err
	}
	e.logger.Info(ctx, "record deleted", "id", rec.ID, "remote_id", rec.RemoteID)
	return true, nil
}

// fail records a failed remote call against the record and returns err,
// joined with any bookkeeping error.
func (e *SyncEngine) fail(ctx context.Context, rec *models.Record, op string, err error) error {
	rejected := client.IsRejected(err)
	switch {
	case rejected:
		e.logger.Warn(ctx, "remote store rejected record", "op", op, "id", rec.ID, "error", err)
	case client.IsRetryable(err):
		e.logger.Warn(ctx, "remote call failed, will retry", "op", op, "id", rec.ID, "error", err)
	default:
		// Not classified by the adapter. The record stays eligible so the
		// next pass tries again.
		e.logger.Error(ctx, "unexpected remote error", "op", op, "id", rec.ID, "error", err)
	}

	if ferr := e.records.RecordFailure(ctx, rec.ID, err.Error(), rejected); ferr != nil {
		return errors.Join(err, ferr)
	}
	return err
}

// FullSync refreshes the remote view, pushes every pending record and
// finishes every pending deletion, oldest capture first. Records are
// processed independently; failures are counted in the report. A cancelled
// context stops the pass between records.
func (e *SyncEngine) FullSync(ctx context.Context) SyncReport {
	var report SyncReport

	known := map[string]string{}
	view, err := e.refreshView(ctx)
	if err != nil {
		report.ListErr = err
		e.logger.Warn(ctx, "remote view refresh failed, keeping previous view", "error", err)
	} else {
		for _, r := range view {
			if r.ClientID != "" {
				known[r.ClientID] = r.ID
			}
		}
	}

	if !e.pushPending(ctx, known, &report) || !e.finishDeletions(ctx, &report) {
		return report
	}

	e.logger.Info(ctx, "sync pass finished",
		"attempted", report.Attempted, "pushed", report.Pushed, "deleted", report.Deleted,
		"failed", report.Failed, "skipped", report.Skipped, "list_ok", report.ListErr == nil)
	return report
}

// pushPending walks the pending records. A failed listing is counted and
// does not stop the deletion phase. It returns false once ctx is done.
func (e *SyncEngine) pushPending(ctx context.Context, known map[string]string, report *SyncReport) bool {
	pending, err := e.records.ListByState(ctx, models.StatePending)
	if err != nil {
		report.Failed++
		report.Errors = append(report.Errors, RecordError{Err: err})
		e.logger.Error(ctx, "listing pending records failed", "error", err)
		return ctx.Err() == nil
	}
	for _, rec := range pending {
		if ctx.Err() != nil {
			return false
		}
		if rec.Rejected {
			report.Skipped++
			continue
		}
		report.Attempted++
		synced, err := e.syncPending(ctx, rec.ID, known)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, RecordError{ID: rec.ID, Err: err})
			continue
		}
		if synced {
			report.Pushed++
		}
	}
	return ctx.Err() == nil
}

func (e *SyncEngine) finishDeletions(ctx context.Context, report *SyncReport) bool {
	deleting, err := e.records.ListByState(ctx, models.StateDeletePending)
	if err != nil {
		report.Failed++
		report.Errors = append(report.Errors, RecordError{Err: err})
		e.logger.Error(ctx, "listing pending deletions failed", "error", err)
		return ctx.Err() == nil
	}
	for _, rec := range deleting {
		if ctx.Err() != nil {
			return false
		}
		report.Attempted++
		purged, err := e.syncDeletion(ctx, rec.ID)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, RecordError{ID: rec.ID, Err: err})
			continue
		}
		if purged {
			report.Deleted++
		}
	}
	return ctx.Err() == nil
}

// syncPending pushes one pending record, or adopts the remote row that
// already carries its id as client_id.
func (e *SyncEngine) syncPending(ctx context.Context, id string, known map[string]string) (bool, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.records.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rec.SyncState != models.StatePending || rec.Rejected {
		return false, nil
	}

	if remoteID, ok := known[rec.ID]; ok {
		if err := e.records.MarkSynced(ctx, rec.ID, remoteID); err != nil {
			return false, err
		}
		e.logger.Info(ctx, "record already present remotely", "id", rec.ID, "remote_id", remoteID)
		return true, nil
	}

	if err := e.push(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (e *SyncEngine) syncDeletion(ctx context.Context, id string) (bool, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.records.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.deleteRemote(ctx, rec)
}

func (e *SyncEngine) refreshView(ctx context.Context) ([]models.RemoteRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	view, err := e.remote.List(callCtx)
	if err != nil {
		return nil, err
	}

	e.viewMu.Lock()
	e.view = view
	e.viewAt = e.now()
	e.viewMu.Unlock()
	return view, nil
}

// RemoteView returns a copy of the last successfully fetched remote view and
// the time it was fetched (zero if never).
func (e *SyncEngine) RemoteView() ([]models.RemoteRecord, time.Time) {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()

	out := make([]models.RemoteRecord, len(e.view))
	copy(out, e.view)
	return out, e.viewAt
}
