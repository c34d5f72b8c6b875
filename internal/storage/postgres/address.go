package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cloud-kitchen/internal/domain/address"
)

const (
	addressColumns = `id, name, full_name, address, city, zip_code, created_at`

	createAddressSQL = `INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getAddressSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`

	listAddressesSQL = `SELECT ` + addressColumns + `
		FROM addresses ORDER BY created_at, id`

	updateAddressSQL = `UPDATE addresses
		SET name = $2, full_name = $3, address = $4, city = $5, zip_code = $6
		WHERE id = $1
		RETURNING created_at`

	deleteAddressSQL = `DELETE FROM addresses WHERE id = $1`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// Create persists a new address.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	d := a.Delivery
	if _, err := r.pool.Exec(ctx, createAddressSQL,
		a.ID, a.Name, d.FullName, d.Address, d.City, d.ZipCode, a.CreatedAt,
	); err != nil {
		return fmt.Errorf("creating address %q: %w", a.ID, err)
	}
	return nil
}

// Get returns one address by ID.
func (r *AddressRepository) Get(ctx context.Context, id string) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	return &a, nil
}

// List returns all addresses, oldest first.
func (r *AddressRepository) List(ctx context.Context) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// Update replaces name and delivery details and reads back CreatedAt.
func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	d := a.Delivery
	err := r.pool.QueryRow(ctx, updateAddressSQL,
		a.ID, a.Name, d.FullName, d.Address, d.City, d.ZipCode,
	).Scan(&a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return address.ErrNotFound
		}
		return fmt.Errorf("updating address %q: %w", a.ID, err)
	}
	return nil
}

// Delete removes one address.
func (r *AddressRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteAddressSQL, id)
	if err != nil {
		return fmt.Errorf("deleting address %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.Name,
		&a.Delivery.FullName, &a.Delivery.Address, &a.Delivery.City, &a.Delivery.ZipCode,
		&a.CreatedAt,
	)
	return a, err
}
