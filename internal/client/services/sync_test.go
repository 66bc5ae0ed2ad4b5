package services

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/client/client"
	"github.com/dmitrijs2005/scankeeper/internal/client/models"
	"github.com/dmitrijs2005/scankeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/scankeeper/internal/common"
	"github.com/dmitrijs2005/scankeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushOne_SyncsPendingRecord(t *testing.T) {
	fx := newFixture(t)
	rec := fx.insert(t, "9001")

	require.NoError(t, fx.engine.PushOne(context.Background(), rec.ID))

	got := fx.get(t, rec.ID)
	assert.Equal(t, models.StateSynced, got.SyncState)
	assert.Equal(t, "r-1", got.RemoteID)
	assert.Empty(t, got.LastError)

	assert.Equal(t, []models.RemoteRecord{
		{ID: "r-1", Data: "9001", Type: "qr", ClientID: rec.ID},
	}, fx.remote.snapshot())
}

func TestPushOne_SyncedRecordMakesNoNetworkCall(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	rec := fx.insert(t, "9001")

	require.NoError(t, fx.engine.PushOne(ctx, rec.ID))
	require.NoError(t, fx.engine.PushOne(ctx, rec.ID))

	creates, _, _ := fx.remote.counts()
	assert.Equal(t, 1, creates)
	assert.Len(t, fx.remote.snapshot(), 1)
}

func TestPushOne_ConcurrentCallsCreateOnce(t *testing.T) {
	fx := newFixture(t)
	rec := fx.insert(t, "9001")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, fx.engine.PushOne(context.Background(), rec.ID))
		}()
	}
	wg.Wait()

	creates, _, _ := fx.remote.counts()
	assert.Equal(t, 1, creates)
}

func TestPushOne_MissingRecordIsNoop(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.engine.PushOne(context.Background(), "nope"))

	creates, _, _ := fx.remote.counts()
	assert.Zero(t, creates)
}

func TestPushOne_NetworkDownKeepsRecordPending(t *testing.T) {
	fx := newFixture(t)
	fx.remote.setDown(true)
	rec := fx.insert(t, "9001")

	err := fx.engine.PushOne(context.Background(), rec.ID)
	require.ErrorIs(t, err, client.ErrNetwork)

	got := fx.get(t, rec.ID)
	assert.Equal(t, models.StatePending, got.SyncState)
	assert.Empty(t, got.RemoteID)
	assert.Equal(t, 1, got.Attempts)
	assert.Contains(t, got.LastError, "connection refused")
	assert.False(t, got.Rejected)
}

func TestPushOne_RejectionAwaitsResync(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.remote.setReject(&client.RejectedError{Status: 400, Message: "data is required"})
	rec := fx.insert(t, "9001")

	err := fx.engine.PushOne(ctx, rec.ID)
	assert.True(t, client.IsRejected(err))

	got := fx.get(t, rec.ID)
	assert.Equal(t, models.StatePending, got.SyncState)
	assert.True(t, got.Rejected)

	err = fx.engine.PushOne(ctx, rec.ID)
	require.ErrorIs(t, err, ErrAwaitingResync)
	creates, _, _ := fx.remote.counts()
	assert.Equal(t, 1, creates)

	fx.remote.setReject(nil)
	require.NoError(t, fx.engine.Resync(ctx, rec.ID))

	got = fx.get(t, rec.ID)
	assert.Equal(t, models.StateSynced, got.SyncState)
	assert.False(t, got.Rejected)
	assert.Equal(t, "r-1", got.RemoteID)
}

func TestResync_UnknownRecord(t *testing.T) {
	fx := newFixture(t)

	err := fx.engine.Resync(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestBeginDeletion_PendingRecordIsPurgedLocally(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	rec := fx.insert(t, "9001")

	purged, err := fx.engine.BeginDeletion(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, purged)

	_, err = fx.repo.Get(ctx, rec.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	_, deletes, _ := fx.remote.counts()
	assert.Zero(t, deletes)
}

func TestBeginDeletion_UnknownRecord(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.engine.BeginDeletion(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeletion_RoundTrip(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	rec := fx.insert(t, "9001")
	require.NoError(t, fx.engine.PushOne(ctx, rec.ID))

	purged, err := fx.engine.BeginDeletion(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, purged)
	assert.Equal(t, models.StateDeletePending, fx.get(t, rec.ID).SyncState)

	visible, err := fx.repo.ListVisible(ctx)
	require.NoError(t, err)
	assert.Empty(t, visible)

	require.NoError(t, fx.engine.PushDeletion(ctx, rec.ID))

	_, err = fx.repo.Get(ctx, rec.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, fx.remote.snapshot())
}

func TestPushDeletion_NetworkDownRetriedByFullSync(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	rec := fx.insert(t, "9001")
	require.NoError(t, fx.engine.PushOne(ctx, rec.ID))

	fx.remote.setDown(true)
	err := fx.engine.PushDeletion(ctx, rec.ID)
	require.ErrorIs(t, err, client.ErrNetwork)

	got := fx.get(t, rec.ID)
	assert.Equal(t, models.StateDeletePending, got.SyncState)
	assert.Equal(t, 1, got.Attempts)

	fx.remote.setDown(false)
	report := fx.engine.FullSync(ctx)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Deleted)
	assert.Empty(t, fx.remote.snapshot())

	_, err = fx.repo.Get(ctx, rec.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestFullSync_AdoptsRemoteRowAfterLostAck(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	rec := fx.insert(t, "9001")

	fx.remote.setLoseAck(true)
	err := fx.engine.PushOne(ctx, rec.ID)
	require.ErrorIs(t, err, client.ErrNetwork)
	assert.Equal(t, models.StatePending, fx.get(t, rec.ID).SyncState)

	fx.remote.setLoseAck(false)
	report := fx.engine.FullSync(ctx)
	require.NoError(t, report.Err())
	assert.Equal(t, 1, report.Pushed)

	got := fx.get(t, rec.ID)
	assert.Equal(t, models.StateSynced, got.SyncState)
	assert.Equal(t, "r-1", got.RemoteID)

	creates, _, _ := fx.remote.counts()
	assert.Equal(t, 1, creates)
	assert.Len(t, fx.remote.snapshot(), 1)
}

func TestFullSync_NetworkDownCountsEveryRecord(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.remote.setDown(true)
	for _, p := range []string{"a", "b", "c"} {
		fx.insert(t, p)
	}

	report := fx.engine.FullSync(ctx)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 3, report.Failed)
	assert.Len(t, report.Errors, 3)
	require.ErrorIs(t, report.ListErr, client.ErrNetwork)
	require.Error(t, report.Err())

	pending, err := fx.repo.ListByState(ctx, models.StatePending)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for _, r := range pending {
		assert.Equal(t, 1, r.Attempts)
	}

	fx.remote.setDown(false)
	report = fx.engine.FullSync(ctx)
	require.NoError(t, report.Err())
	assert.Equal(t, 3, report.Pushed)

	var data []string
	for _, r := range fx.remote.snapshot() {
		data = append(data, r.Data)
	}
	assert.Equal(t, []string{"a", "b", "c"}, data)
}

func TestFullSync_SkipsRejectedRecords(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	bad := fx.insert(t, "bad")
	fx.remote.setReject(&client.RejectedError{Status: 422})
	require.Error(t, fx.engine.PushOne(ctx, bad.ID))
	fx.remote.setReject(nil)

	good := fx.insert(t, "good")

	report := fx.engine.FullSync(ctx)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Pushed)
	assert.Equal(t, models.StatePending, fx.get(t, bad.ID).SyncState)
	assert.Equal(t, models.StateSynced, fx.get(t, good.ID).SyncState)
}

func TestFullSync_VisibleRecordsMatchRemote(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, p := range []string{"1", "2", "3", "4", "5"} {
		ids = append(ids, fx.insert(t, p).ID)
	}
	require.NoError(t, fx.engine.PushOne(ctx, ids[0]))
	require.NoError(t, fx.engine.PushOne(ctx, ids[1]))

	// one synced and one never-synced record deleted, the second while offline
	_, err := fx.engine.BeginDeletion(ctx, ids[0])
	require.NoError(t, err)
	fx.remote.setDown(true)
	_, err = fx.engine.BeginDeletion(ctx, ids[2])
	require.NoError(t, err)
	fx.engine.FullSync(ctx)
	fx.remote.setDown(false)

	report := fx.engine.FullSync(ctx)
	require.NoError(t, report.Err())

	visible, err := fx.repo.ListVisible(ctx)
	require.NoError(t, err)
	var local, remote []string
	for _, r := range visible {
		assert.Equal(t, models.StateSynced, r.SyncState)
		local = append(local, r.RemoteID)
	}
	for _, r := range fx.remote.snapshot() {
		remote = append(remote, r.ID)
	}
	sort.Strings(local)
	sort.Strings(remote)
	assert.Equal(t, remote, local)
	assert.Len(t, local, 3)
}

func TestFullSync_CancelledContextStopsPass(t *testing.T) {
	fx := newFixture(t)
	fx.insert(t, "9001")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := fx.engine.FullSync(ctx)
	assert.Zero(t, report.Attempted)
	creates, _, _ := fx.remote.counts()
	assert.Zero(t, creates)
}

func TestRemoteView_KeepsLastGoodView(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	view, at := fx.engine.RemoteView()
	assert.Empty(t, view)
	assert.True(t, at.IsZero())

	rec := fx.insert(t, "9001")
	require.NoError(t, fx.engine.PushOne(ctx, rec.ID))
	fx.engine.FullSync(ctx)

	view, at = fx.engine.RemoteView()
	require.Len(t, view, 1)
	assert.False(t, at.IsZero())

	view[0].Data = "mutated"
	fx.remote.setDown(true)
	report := fx.engine.FullSync(ctx)
	require.Error(t, report.ListErr)

	again, againAt := fx.engine.RemoteView()
	require.Len(t, again, 1)
	assert.Equal(t, "9001", again[0].Data)
	assert.Equal(t, at, againAt)
}

// brokenListRepo fails ListByState for one state only.
type brokenListRepo struct {
	records.Repository
	state models.SyncState
}

func (r *brokenListRepo) ListByState(ctx context.Context, state models.SyncState) ([]models.Record, error) {
	if state == r.state {
		return nil, common.ErrPersistence
	}
	return r.Repository.ListByState(ctx, state)
}

func TestFullSync_PendingListFailureStillFinishesDeletions(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doomed := fx.insert(t, "9001")
	require.NoError(t, fx.engine.PushOne(ctx, doomed.ID))
	purged, err := fx.engine.BeginDeletion(ctx, doomed.ID)
	require.NoError(t, err)
	require.False(t, purged)
	fx.insert(t, "9002")

	engine := NewSyncEngine(&brokenListRepo{Repository: fx.repo, state: models.StatePending},
		fx.remote, logging.Discard(), time.Second)
	report := engine.FullSync(ctx)

	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.ErrorIs(t, report.Errors[0].Err, common.ErrPersistence)
	assert.False(t, report.OK())
	assert.Empty(t, fx.remote.snapshot())

	_, err = fx.repo.Get(ctx, doomed.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFullSync_DeletionListFailureKeepsPushes(t *testing.T) {
	fx := newFixture(t)
	rec := fx.insert(t, "9001")

	engine := NewSyncEngine(&brokenListRepo{Repository: fx.repo, state: models.StateDeletePending},
		fx.remote, logging.Discard(), time.Second)
	report := engine.FullSync(context.Background())

	assert.Equal(t, 1, report.Pushed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, models.StateSynced, fx.get(t, rec.ID).SyncState)
}

func TestPushOne_UnclassifiedErrorStaysRetryable(t *testing.T) {
	fx := newFixture(t)
	var logs bytes.Buffer
	fx.engine = NewSyncEngine(fx.repo, fx.remote, logging.New(&logs, "debug", "text"), time.Second)
	rec := fx.insert(t, "9001")
	fx.remote.mu.Lock()
	fx.remote.failWith = errors.New("decoder exploded")
	fx.remote.mu.Unlock()

	err := fx.engine.PushOne(context.Background(), rec.ID)
	require.Error(t, err)
	assert.False(t, client.IsRetryable(err))

	got := fx.get(t, rec.ID)
	assert.Equal(t, models.StatePending, got.SyncState)
	assert.False(t, got.Rejected)
	assert.Equal(t, 1, got.Attempts)
	assert.Contains(t, logs.String(), "unexpected remote error")

	fx.remote.mu.Lock()
	fx.remote.failWith = nil
	fx.remote.mu.Unlock()
	report := fx.engine.FullSync(context.Background())
	assert.Equal(t, 1, report.Pushed)
}
