package records

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Calculation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Calculation, error)
	// List returns newest first together with the total count.
	List(ctx context.Context, limit, offset int) ([]*Calculation, int, error)
}
