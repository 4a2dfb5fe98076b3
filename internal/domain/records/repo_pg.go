package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type calculationRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &calculationRepoPG{pool: pool} }

func (r *calculationRepoPG) conn() queryable { return r.pool }

const calcCols = `id, kind, payload, created_by, created_at`

func (r *calculationRepoPG) scan(row pgx.Row) (*Calculation, error) {
	var c Calculation
	var payload []byte
	if err := row.Scan(&c.ID, &c.Kind, &payload, &c.CreatedBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Payload = payload
	return &c, nil
}

func (r *calculationRepoPG) Create(ctx context.Context, c *Calculation) error {
	c.ID = uuid.New()
	_, err := r.conn().Exec(ctx, `
		INSERT INTO saved_calculation (id, kind, payload, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Kind, []byte(c.Payload), c.CreatedBy, c.CreatedAt)
	return err
}

func (r *calculationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Calculation, error) {
	c, err := r.scan(r.conn().QueryRow(ctx, `SELECT `+calcCols+` FROM saved_calculation WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *calculationRepoPG) List(ctx context.Context, limit, offset int) ([]*Calculation, int, error) {
	var total int
	if err := r.conn().QueryRow(ctx, `SELECT COUNT(*) FROM saved_calculation`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn().Query(ctx, `SELECT `+calcCols+` FROM saved_calculation
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
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
