package records

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Calculation
	order []uuid.UUID
}

// NewMemoryRepo keeps calculations for the lifetime of the process.
func NewMemoryRepo() Repository {
	return &memoryRepo{byID: map[uuid.UUID]*Calculation{}}
}

func (r *memoryRepo) Create(_ context.Context, c *Calculation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	cp := *c
	r.byID[c.ID] = &cp
	r.order = append(r.order, c.ID)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Calculation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryRepo) List(_ context.Context, limit, offset int) ([]*Calculation, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := len(r.order)
	var out []*Calculation
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		cp := *r.byID[r.order[i]]
		out = append(out, &cp)
	}
	return out, total, nil
}
