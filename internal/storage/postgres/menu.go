package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cloud-kitchen/internal/domain/menu"
)

const (
	menuColumns = `id, name, description, price, category, image_url`

	listMenuSQL = `SELECT ` + menuColumns + ` FROM menu_items ORDER BY id`

	listMenuByCategorySQL = `SELECT ` + menuColumns + `
		FROM menu_items WHERE category = $1 ORDER BY id`

	getMenuItemSQL = `SELECT ` + menuColumns + ` FROM menu_items WHERE id = $1`

	getMenuItemsSQL = `SELECT ` + menuColumns + `
		FROM menu_items WHERE id = ANY($1) ORDER BY id`

	upsertMenuItemSQL = `INSERT INTO menu_items (` + menuColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			image_url = EXCLUDED.image_url`
)

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository implements menu.Repository backed by PostgreSQL.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

// List returns the whole menu ordered by ID.
func (r *MenuRepository) List(ctx context.Context) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, listMenuSQL)
	if err != nil {
		return nil, fmt.Errorf("listing menu: %w", err)
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

// ListByCategory returns the dishes of one category ordered by ID.
func (r *MenuRepository) ListByCategory(ctx context.Context, category menu.Category) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, listMenuByCategorySQL, string(category))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", category, err)
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

// GetByID returns a single dish.
func (r *MenuRepository) GetByID(ctx context.Context, id int) (*menu.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %d: %w", id, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, menu.ErrNotFound
		}
		return nil, fmt.Errorf("getting menu item %d: %w", id, err)
	}
	return &it, nil
}

// GetByIDs returns the dishes matching any of ids. Unknown ids are skipped.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []int) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting menu items by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

// Upsert inserts or replaces items in a single transaction.
func (r *MenuRepository) Upsert(ctx context.Context, items []menu.Item) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, it := range items {
			batch.Queue(upsertMenuItemSQL,
				it.ID, it.Name, it.Description, it.Price, string(it.Category), it.ImageURL,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting %d menu items: %w", len(items), err)
		}
		return nil
	})
}

func scanMenuItem(row pgx.CollectableRow) (menu.Item, error) {
	var (
		it       menu.Item
		category string
	)
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &category, &it.ImageURL)
	it.Category = menu.Category(category)
	return it, err
}
