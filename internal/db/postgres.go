package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema holds the product catalog: one row per product and one row per
// retailer-specific code.
const Schema = `
CREATE TABLE IF NOT EXISTS catalog_products (
	id              uuid PRIMARY KEY,
	position        integer NOT NULL DEFAULT 0,
	name            text NOT NULL UNIQUE,
	ean             text NOT NULL DEFAULT '',
	category        text NOT NULL DEFAULT '',
	brand           text NOT NULL DEFAULT '',
	suggested_price numeric
);
CREATE TABLE IF NOT EXISTS catalog_codes (
	product_id uuid NOT NULL REFERENCES catalog_products(id) ON DELETE CASCADE,
	retailer   text NOT NULL,
	code       text NOT NULL,
	PRIMARY KEY (product_id, retailer)
);`

// NewPool connects and pings the database.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}
