package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/client/client"
	"github.com/dmitrijs2005/scankeeper/internal/client/models"
	"github.com/dmitrijs2005/scankeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/scankeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

// fakeRemote is an in-memory RemoteStore that honours client_id replays.
type fakeRemote struct {
	mu      sync.Mutex
	rows    []models.RemoteRecord
	nextID  int
	down    bool
	reject  *client.RejectedError
	loseAck bool
	// failWith, when set, is returned by Create as is.
	failWith error
	block    chan struct{}

	creates int
	deletes int
	lists   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{}
}

func (f *fakeRemote) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeRemote) setReject(r *client.RejectedError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reject = r
}

func (f *fakeRemote) setLoseAck(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loseAck = v
}

func (f *fakeRemote) counts() (creates, deletes, lists int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.deletes, f.lists
}

func (f *fakeRemote) snapshot() []models.RemoteRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.RemoteRecord, len(f.rows))
	copy(out, f.rows)
	return out
}

func (f *fakeRemote) unavailable(op string) error {
	return fmt.Errorf("%w: %s: connection refused", client.ErrNetwork, op)
}

func (f *fakeRemote) List(_ context.Context) ([]models.RemoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.down {
		return nil, f.unavailable("list")
	}
	out := make([]models.RemoteRecord, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeRemote) Create(ctx context.Context, req client.CreateRequest) (string, error) {
	if f.block != nil {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: create: %w", client.ErrNetwork, ctx.Err())
		case <-f.block:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.down {
		return "", f.unavailable("create")
	}
	if f.reject != nil {
		return "", f.reject
	}
	if f.failWith != nil {
		return "", f.failWith
	}

	for _, r := range f.rows {
		if req.ClientID != "" && r.ClientID == req.ClientID {
			return r.ID, nil
		}
	}

	f.nextID++
	row := models.RemoteRecord{
		ID:       fmt.Sprintf("r-%d", f.nextID),
		Data:     req.Data,
		Type:     req.Type,
		ClientID: req.ClientID,
	}
	f.rows = append(f.rows, row)
	if f.loseAck {
		return "", fmt.Errorf("%w: create: response lost", client.ErrNetwork)
	}
	return row.ID, nil
}

func (f *fakeRemote) Delete(_ context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.down {
		return f.unavailable("delete")
	}
	for i, r := range f.rows {
		if r.ID == remoteID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRemote) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return f.unavailable("ping")
	}
	return nil
}

// manualClock only moves when told to.
type manualClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newManualClock() *manualClock {
	return &manualClock{cur: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

type fixture struct {
	db     *sql.DB
	repo   *records.SQLiteRepository
	remote *fakeRemote
	engine *SyncEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "scankeeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var seq int
	var mu sync.Mutex
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("local-%02d", seq)
	}
	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Millisecond)
		return clock
	}

	repo := records.NewSQLiteRepository(db, records.WithIDGenerator(ids), records.WithClock(now))
	remote := newFakeRemote()
	return &fixture{
		db:     db,
		repo:   repo,
		remote: remote,
		engine: NewSyncEngine(repo, remote, logging.Discard(), time.Second),
	}
}

func (fx *fixture) insert(t *testing.T, payload string) *models.Record {
	t.Helper()
	rec, err := fx.repo.Insert(context.Background(), payload, "qr")
	require.NoError(t, err)
	return rec
}

func (fx *fixture) get(t *testing.T, id string) *models.Record {
	t.Helper()
	rec, err := fx.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return rec
}
