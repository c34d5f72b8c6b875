package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/xenking/cloud-kitchen/internal/domain/order"
)

// uniqueViolation is the SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

const (
	orderColumns = `id, session_id, lines, subtotal, tax_and_fees, total, currency,
		full_name, address, city, zip_code, estimated_delivery, status, created_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders ORDER BY created_at DESC, id DESC LIMIT $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Lines are stored in a JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.SessionID, encodeLines(o.Lines),
		o.Subtotal, o.TaxAndFees, o.Total, o.Currency.String(),
		o.Delivery.FullName, o.Delivery.Address, o.Delivery.City, o.Delivery.ZipCode,
		o.EstimatedDelivery, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating order %q: %w", o.ID, order.ErrDuplicateID)
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Get returns one order by ID.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// List returns up to limit orders, newest first.
func (r *OrderRepository) List(ctx context.Context, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		lines  []byte
		code   string
		status string
	)
	if err := row.Scan(
		&o.ID, &o.SessionID, &lines, &o.Subtotal, &o.TaxAndFees, &o.Total, &code,
		&o.Delivery.FullName, &o.Delivery.Address, &o.Delivery.City, &o.Delivery.ZipCode,
		&o.EstimatedDelivery, &status, &o.CreatedAt,
	); err != nil {
		return o, err
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return o, errors.Wrapf(err, "order %s currency", o.ID)
	}
	o.Currency = unit
	o.Status = order.Status(status)

	if o.Lines, err = decodeLines(lines); err != nil {
		return o, errors.Wrapf(err, "order %s lines", o.ID)
	}
	return o, nil
}

func encodeLines(lines []order.Line) []byte {
	e := &jx.Encoder{}
	e.Arr(func(e *jx.Encoder) {
		for _, l := range lines {
			e.Obj(func(e *jx.Encoder) {
				e.Field("itemId", func(e *jx.Encoder) { e.Int(l.ItemID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
				e.Field("unitPrice", func(e *jx.Encoder) { e.Str(l.UnitPrice.String()) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
				e.Field("lineTotal", func(e *jx.Encoder) { e.Str(l.LineTotal.String()) })
			})
		}
	})
	return e.Bytes()
}

func decodeLines(data []byte) ([]order.Line, error) {
	var lines []order.Line
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var l order.Line
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "itemId":
				l.ItemID, err = d.Int()
			case "name":
				l.Name, err = d.Str()
			case "unitPrice":
				l.UnitPrice, err = decodeAmount(d)
			case "quantity":
				l.Quantity, err = d.Int()
			case "lineTotal":
				l.LineTotal, err = decodeAmount(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	})
	return lines, err
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Decimal{}, err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, strconv.Quote(s))
	}
	return v, nil
}
