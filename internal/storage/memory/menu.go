// Package memory implements the repositories in process memory. It backs
// the service when no database is configured.
package memory

import (
	"context"
	"slices"

	"github.com/xenking/cloud-kitchen/internal/domain/menu"
)

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository serves a fixed menu. It is read-only after construction.
type MenuRepository struct {
	items []menu.Item
	byID  map[int]int
}

// NewMenuRepository returns a repository over a copy of items sorted by ID.
func NewMenuRepository(items []menu.Item) *MenuRepository {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b menu.Item) int { return a.ID - b.ID })

	byID := make(map[int]int, len(sorted))
	for i, it := range sorted {
		byID[it.ID] = i
	}
	return &MenuRepository{items: sorted, byID: byID}
}

// List returns the whole menu ordered by ID.
func (r *MenuRepository) List(context.Context) ([]menu.Item, error) {
	return slices.Clone(r.items), nil
}

// ListByCategory returns the dishes of one category ordered by ID.
func (r *MenuRepository) ListByCategory(_ context.Context, category menu.Category) ([]menu.Item, error) {
	var out []menu.Item
	for _, it := range r.items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out, nil
}

// GetByID returns a single dish.
func (r *MenuRepository) GetByID(_ context.Context, id int) (*menu.Item, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, menu.ErrNotFound
	}
	it := r.items[i]
	return &it, nil
}

// GetByIDs returns the dishes matching any of ids, ordered by ID. Unknown
// ids are skipped.
func (r *MenuRepository) GetByIDs(_ context.Context, ids []int) ([]menu.Item, error) {
	idx := make([]int, 0, len(ids))
	for _, id := range ids {
		if i, ok := r.byID[id]; ok && !slices.Contains(idx, i) {
			idx = append(idx, i)
		}
	}
	slices.Sort(idx)

	out := make([]menu.Item, len(idx))
	for n, i := range idx {
		out[n] = r.items[i]
	}
	return out, nil
}
