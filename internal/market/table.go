package market

import (
	"time"

	"github.com/shopspring/decimal"

	"relevamiento/internal/model"
)

// DefaultThreshold is the dispersion, in pesos, above which a row is flagged.
var DefaultThreshold = decimal.NewFromInt(500)

type TableOptions struct {
	Retailers      []model.RetailerID
	Reference      model.RetailerID
	Threshold      decimal.Decimal
	SuggestedPrice func(model.ProductRef) decimal.NullDecimal
}

// DispersionWarning flags a row whose delta exceeds the threshold.
type DispersionWarning struct {
	Row        int
	Product    model.ProductRef
	Dispersion Dispersion
}

// ComparisonTable is the read-only view derived from one scan.
type ComparisonTable struct {
	ScanID    string
	Retailers []model.RetailerID
	Reference model.RetailerID
	Threshold decimal.Decimal

	Rows        []model.RetailerPriceRow
	Dispersion  []Dispersion                               // parallel to Rows
	VsReference []map[model.RetailerID]decimal.NullDecimal // parallel to Rows
	Categories  CategoryIndex
	Warnings    []DispersionWarning

	StartedAt  time.Time
	FinishedAt time.Time
}

// Build derives every statistic from rows. A zero Threshold means
// DefaultThreshold; retailers default to model.AllRetailers.
func Build(rows []model.RetailerPriceRow, opts TableOptions) *ComparisonTable {
	if len(opts.Retailers) == 0 {
		opts.Retailers = model.AllRetailers
	}
	if opts.Reference == "" {
		opts.Reference = model.Carrefour
	}
	if opts.Threshold.IsZero() {
		opts.Threshold = DefaultThreshold
	}

	t := &ComparisonTable{
		Retailers:   opts.Retailers,
		Reference:   opts.Reference,
		Threshold:   opts.Threshold,
		Rows:        rows,
		Dispersion:  make([]Dispersion, len(rows)),
		VsReference: make([]map[model.RetailerID]decimal.NullDecimal, len(rows)),
		Categories:  BuildCategoryIndex(rows, opts.Retailers, opts.SuggestedPrice),
	}
	for i, row := range rows {
		d := DispersionOf(row)
		t.Dispersion[i] = d
		t.VsReference[i] = PercentVsReference(row, opts.Reference, opts.Retailers)
		if d.Exceeds(opts.Threshold) {
			t.Warnings = append(t.Warnings, DispersionWarning{Row: i, Product: row.Product, Dispersion: d})
		}
	}
	return t
}

// MaxDelta is the largest row dispersion, zero when no row has one.
func (t *ComparisonTable) MaxDelta() decimal.Decimal {
	out := decimal.Zero
	for _, d := range t.Dispersion {
		if d.Delta.Valid && d.Delta.Decimal.GreaterThan(out) {
			out = d.Delta.Decimal
		}
	}
	return out
}

func (t *ComparisonTable) Elapsed() time.Duration {
	if t.StartedAt.IsZero() || t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

// ReviewCell is a quote that needs a human look: failed, or priced from a
// fallback item.
type ReviewCell struct {
	Product model.ProductRef
	Quote   model.PriceQuote
}

// Review lists cells in row order, then retailer order.
func (t *ComparisonTable) Review() []ReviewCell {
	var out []ReviewCell
	for _, row := range t.Rows {
		for _, r := range t.Retailers {
			q, ok := row.Quotes[r]
			if !ok {
				continue
			}
			if q.Status != model.StatusOk || q.ApproximateMatch {
				out = append(out, ReviewCell{Product: row.Product, Quote: q})
			}
		}
	}
	return out
}
