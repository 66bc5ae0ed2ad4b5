package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/client/models"
	"github.com/dmitrijs2005/scankeeper/internal/common"
	"github.com/dmitrijs2005/scankeeper/internal/dbx"
	"github.com/google/uuid"
)

const selectColumns = `id, remote_id, payload, symbology, created_at, sync_state, attempts, last_error, rejected`

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db    dbx.DBTX
	now   func() time.Time
	newID func() string
}

type Option func(*SQLiteRepository)

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) { r.now = now }
}

// WithIDGenerator overrides the uuid generator.
func WithIDGenerator(f func() string) Option {
	return func(r *SQLiteRepository) { r.newID = f }
}

func NewSQLiteRepository(db dbx.DBTX, opts ...Option) *SQLiteRepository {
	r := &SQLiteRepository{db: db, now: time.Now, newID: uuid.NewString}
	for _, o := range opts {
		o(r)
	}
	return r
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrPersistence, op, err)
}

func (r *SQLiteRepository) Insert(ctx context.Context, payload, symbology string) (*models.Record, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", common.ErrInvalidInput)
	}

	rec := &models.Record{
		ID:        r.newID(),
		Payload:   payload,
		Symbology: models.NormalizeSymbology(symbology),
		CreatedAt: r.now().UTC(),
		SyncState: models.StatePending,
	}

	query := `INSERT INTO records (id, payload, symbology, created_at, sync_state) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Payload, rec.Symbology, rec.CreatedAt.UnixNano(), string(rec.SyncState))
	if err != nil {
		return nil, persistenceErr("insert record", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListVisible(ctx context.Context) ([]models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM records
		WHERE sync_state <> 'delete_pending'
		ORDER BY created_at DESC, rowid DESC`
	return r.list(ctx, query)
}

func (r *SQLiteRepository) ListByState(ctx context.Context, state models.SyncState) ([]models.Record, error) {
	if !state.Valid() {
		return nil, fmt.Errorf("%w: unknown sync state %q", common.ErrInvalidInput, state)
	}
	query := `SELECT ` + selectColumns + ` FROM records
		WHERE sync_state = ?
		ORDER BY created_at ASC, rowid ASC`
	return r.list(ctx, query, string(state))
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr("select records", err)
	}
	defer rows.Close()

	result := make([]models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, persistenceErr("scan record", err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate records", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, persistenceErr("get record", err)
	}
	return rec, nil
}

// MarkSynced moves a pending record to synced and stores the remote id.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, remoteID string) error {
	query := `UPDATE records SET sync_state = 'synced', remote_id = ?, last_error = '', rejected = 0
		WHERE id = ? AND sync_state = 'pending'`
	if _, err := dbx.ExecAffected(ctx, r.db, query, remoteID, id); err != nil {
		return persistenceErr("mark synced", err)
	}
	return nil
}

// MarkDeletePending hides a record from display until its remote delete is
// acknowledged.
func (r *SQLiteRepository) MarkDeletePending(ctx context.Context, id string) error {
	query := `UPDATE records SET sync_state = 'delete_pending'
		WHERE id = ? AND sync_state IN ('pending', 'synced')`
	if _, err := dbx.ExecAffected(ctx, r.db, query, id); err != nil {
		return persistenceErr("mark delete pending", err)
	}
	return nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, id string) error {
	if _, err := dbx.ExecAffected(ctx, r.db, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return persistenceErr("purge record", err)
	}
	return nil
}

func (r *SQLiteRepository) RecordFailure(ctx context.Context, id, msg string, rejected bool) error {
	query := `UPDATE records SET attempts = attempts + 1, last_error = ?, rejected = MAX(rejected, ?)
		WHERE id = ?`
	if _, err := dbx.ExecAffected(ctx, r.db, query, msg, boolToInt(rejected), id); err != nil {
		return persistenceErr("record failure", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearRejected(ctx context.Context, id string) error {
	query := `UPDATE records SET rejected = 0 WHERE id = ? AND sync_state = 'pending'`
	if _, err := dbx.ExecAffected(ctx, r.db, query, id); err != nil {
		return persistenceErr("clear rejected", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec       models.Record
		createdAt int64
		state     string
		rejected  int
	)
	err := s.Scan(&rec.ID, &rec.RemoteID, &rec.Payload, &rec.Symbology, &createdAt,
		&state, &rec.Attempts, &rec.LastError, &rejected)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.SyncState = models.SyncState(state)
	rec.Rejected = rejected != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
