package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relevamiento/internal/model"
	"relevamiento/internal/pricefmt"
)

// CatalogRepository stores the product catalog in Postgres. It implements
// catalog.Provider.
type CatalogRepository struct {
	DB *pgxpool.Pool
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Category string
	Brand    string
}

// Import upserts products by name, keeping their order as position, and
// replaces their retailer codes. It runs in one transaction.
func (r *CatalogRepository) Import(ctx context.Context, products []model.ProductRef) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, p := range products {
		var suggested any
		if p.SuggestedPrice.Valid {
			suggested = p.SuggestedPrice.Decimal.String()
		}
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO catalog_products (id, position, name, ean, category, brand, suggested_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric)
			ON CONFLICT (name) DO UPDATE
			SET position = EXCLUDED.position, ean = EXCLUDED.ean, category = EXCLUDED.category,
			    brand = EXCLUDED.brand, suggested_price = EXCLUDED.suggested_price
			RETURNING id::text
		`, uuid.New(), i, strings.ToValidUTF8(p.Name, ""), p.EAN, p.Category, p.Brand, suggested).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert %q: %w", p.Name, err)
		}

		batch.Queue(`DELETE FROM catalog_codes WHERE product_id = $1::uuid`, id)
		for retailer, code := range p.Codes {
			batch.Queue(`INSERT INTO catalog_codes (product_id, retailer, code) VALUES ($1::uuid, $2, $3)`, id, string(retailer), code)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write codes: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *CatalogRepository) Products(ctx context.Context) ([]model.ProductRef, error) {
	return r.List(ctx, Filter{})
}

// List returns products in catalog order with their codes.
func (r *CatalogRepository) List(ctx context.Context, f Filter) ([]model.ProductRef, error) {
	var params []any
	where := "1 = 1"
	paramIndex := 1
	if f.Category != "" {
		where += fmt.Sprintf(" AND p.category ILIKE $%d", paramIndex)
		params = append(params, f.Category)
		paramIndex++
	}
	if f.Brand != "" {
		where += fmt.Sprintf(" AND p.brand ILIKE $%d", paramIndex)
		params = append(params, "%"+f.Brand+"%")
		paramIndex++
	}

	query := fmt.Sprintf(`
		SELECT p.id::text, p.name, p.ean, p.category, p.brand,
		       COALESCE(p.suggested_price::text, ''), COALESCE(c.retailer, ''), COALESCE(c.code, '')
		FROM catalog_products p
		LEFT JOIN catalog_codes c ON c.product_id = p.id
		WHERE %s
		ORDER BY p.position, p.name, c.retailer
	`, where)

	rows, err := r.DB.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProductRef
	index := map[string]int{}
	for rows.Next() {
		var id, name, ean, category, brand, suggested, retailer, code string
		if err := rows.Scan(&id, &name, &ean, &category, &brand, &suggested, &retailer, &code); err != nil {
			return nil, err
		}
		i, seen := index[id]
		if !seen {
			i = len(out)
			index[id] = i
			out = append(out, model.ProductRef{
				Name:           name,
				EAN:            ean,
				Category:       category,
				Brand:          brand,
				SuggestedPrice: pricefmt.Parse(suggested),
				Codes:          map[model.RetailerID]string{},
			})
		}
		if id, ok := model.ParseRetailerID(retailer); ok {
			out[i].Codes[id] = code
		}
	}
	return out, rows.Err()
}
