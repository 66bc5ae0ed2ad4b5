package codes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/scankeeper/internal/common"
	"github.com/dmitrijs2005/scankeeper/internal/dbx"
	"github.com/dmitrijs2005/scankeeper/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db    dbx.DBTX
	newID func() string
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, newID: uuid.NewString}
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Code, error) {
	query :=
		`SELECT id, data, type, COALESCE(client_id, ''), created_at FROM codes
		 ORDER BY created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Code, 0)
	for rows.Next() {
		var c models.Code
		if err := rows.Scan(&c.ID, &c.Data, &c.Type, &c.ClientID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Create inserts the code. A conflicting client_id makes the insert a no-op,
// after which the row stored by the first request is read back.
func (r *PostgresRepository) Create(ctx context.Context, code *models.Code) (*models.Code, bool, error) {
	query :=
		`INSERT INTO codes (id, data, type, client_id)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 ON CONFLICT (client_id) DO NOTHING
		 RETURNING created_at
		 `

	stored := *code
	stored.ID = r.newID()
	err := r.db.QueryRowContext(ctx, query, stored.ID, stored.Data, stored.Type, stored.ClientID).
		Scan(&stored.CreatedAt)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || code.ClientID == "" {
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	existing, err := r.getByClientID(ctx, code.ClientID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PostgresRepository) getByClientID(ctx context.Context, clientID string) (*models.Code, error) {
	query :=
		`SELECT id, data, type, client_id, created_at FROM codes
		 WHERE client_id = $1
		 `

	c := &models.Code{}
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(&c.ID, &c.Data, &c.Type, &c.ClientID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	n, err := dbx.ExecAffected(ctx, r.db, `DELETE FROM codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
