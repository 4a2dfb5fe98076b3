package records

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type calculationRepoSQLite struct{ db *sql.DB }

// NewRepoSQLite stores calculations through database/sql. created_at is
// kept as unix milliseconds.
func NewRepoSQLite(db *sql.DB) Repository { return &calculationRepoSQLite{db: db} }

func (r *calculationRepoSQLite) scan(row rowScanner) (*Calculation, error) {
	var (
		c       Calculation
		id      string
		payload string
		created int64
	)
	if err := row.Scan(&id, &c.Kind, &payload, &c.CreatedBy, &created); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	c.ID = parsed
	c.Payload = []byte(payload)
	c.CreatedAt = time.UnixMilli(created).UTC()
	return &c, nil
}

func (r *calculationRepoSQLite) Create(ctx context.Context, c *Calculation) error {
	c.ID = uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saved_calculation (id, kind, payload, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID.String(), c.Kind, string(c.Payload), c.CreatedBy, c.CreatedAt.UnixMilli())
	return err
}

func (r *calculationRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*Calculation, error) {
	c, err := r.scan(r.db.QueryRowContext(ctx, `SELECT `+calcCols+` FROM saved_calculation WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *calculationRepoSQLite) List(ctx context.Context, limit, offset int) ([]*Calculation, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_calculation`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+calcCols+` FROM saved_calculation
		ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Calculation
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
