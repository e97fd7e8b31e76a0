package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, price, active, updated_at`

func scanProduct(row rowScanner) (Product, error) {
	var (
		p     Product
		price pgtype.Numeric
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Active, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	p.Price = numericToDecimal(price)
	return p, nil
}

const getProduct = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

func (q *Queries) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listActiveProducts = `SELECT ` + productColumns + ` FROM products WHERE active = true ORDER BY name, id`

func (q *Queries) ListActiveProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listActiveProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const createProduct = `INSERT INTO products (name, price, active) VALUES ($1, $2, $3)
RETURNING ` + productColumns

type CreateProductParams struct {
	Name   string
	Price  decimal.Decimal
	Active bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct, arg.Name, decimalToNumeric(arg.Price), arg.Active))
}

const isPhoneBlacklisted = `SELECT EXISTS (SELECT 1 FROM blacklisted_phones WHERE phone = $1)`

// IsPhoneBlacklisted expects a phone already reduced to its digits.
func (q *Queries) IsPhoneBlacklisted(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, isPhoneBlacklisted, phone).Scan(&exists)
	return exists, err
}

const addBlacklistedPhone = `INSERT INTO blacklisted_phones (phone, reason) VALUES ($1, $2)
ON CONFLICT (phone) DO UPDATE SET reason = EXCLUDED.reason`

func (q *Queries) AddBlacklistedPhone(ctx context.Context, phone string, reason *string) error {
	_, err := q.db.Exec(ctx, addBlacklistedPhone, phone, reason)
	return err
}
