package memory

import (
	"context"
	"sort"
	"sync"

	"staybook/internal/domain/unit"
)

type UnitRepository struct {
	mu    sync.RWMutex
	units map[unit.UnitID]unit.Unit
}

func NewUnitRepository() *UnitRepository {
	return &UnitRepository{units: make(map[unit.UnitID]unit.Unit)}
}

// Seed loads catalog fixtures; the reservation core itself never writes
// units.
func (r *UnitRepository) Seed(units ...unit.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range units {
		r.units[u.ID] = u
	}
}

func (r *UnitRepository) ByID(_ context.Context, id unit.UnitID) (*unit.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	if !ok {
		return nil, unit.ErrUnitNotFound
	}
	copy := u
	return &copy, nil
}

func (r *UnitRepository) List(_ context.Context) ([]*unit.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*unit.Unit, 0, len(r.units))
	for _, u := range r.units {
		copy := u
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ unit.Repository = (*UnitRepository)(nil)
