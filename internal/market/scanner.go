// Package market runs every retailer adapter over the catalog and derives
// the comparison statistics.
package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"relevamiento/internal/model"
	"relevamiento/internal/observability"
	"relevamiento/internal/retailer"
)

// ProgressFunc receives (completed, total) cells. Calls are serialized and
// completed is strictly increasing.
type ProgressFunc func(completed, total int)

type Scanner struct {
	Adapters []retailer.Adapter
	Workers  int

	// Table options.
	ID             string
	Reference      model.RetailerID
	Threshold      decimal.Decimal
	SuggestedPrice func(model.ProductRef) decimal.NullDecimal

	OnProgress ProgressFunc
	Log        zerolog.Logger
	Metrics    *observability.Registry
}

func (s *Scanner) workers() int {
	if s.Workers <= 0 {
		return 8
	}
	return s.Workers
}

// Retailers lists the configured retailers in adapter order.
func (s *Scanner) Retailers() []model.RetailerID {
	out := make([]model.RetailerID, len(s.Adapters))
	for i, a := range s.Adapters {
		out[i] = a.ID()
	}
	return out
}

// Scan quotes every (product, adapter) pair. It always returns one row per
// product, in catalog order, with one quote per adapter. When ctx is
// cancelled no new cells are dispatched; undispatched cells are filled as
// NetworkError and ctx.Err() is returned along with the rows.
func (s *Scanner) Scan(ctx context.Context, products []model.ProductRef) ([]model.RetailerPriceRow, error) {
	total := len(products) * len(s.Adapters)
	cells := make([][]model.PriceQuote, len(products))
	done := make([][]bool, len(products))
	for i := range products {
		cells[i] = make([]model.PriceQuote, len(s.Adapters))
		done[i] = make([]bool, len(s.Adapters))
	}

	var (
		mu        sync.Mutex
		completed int
	)
	var g errgroup.Group
	g.SetLimit(s.workers())

dispatch:
	for i, p := range products {
		for j, a := range s.Adapters {
			if ctx.Err() != nil {
				break dispatch
			}
			g.Go(func() error {
				q := s.quote(ctx, a, p)
				mu.Lock()
				defer mu.Unlock()
				cells[i][j], done[i][j] = q, true
				completed++
				if s.OnProgress != nil {
					s.OnProgress(completed, total)
				}
				return nil
			})
		}
	}
	g.Wait()

	err := ctx.Err()
	rows := make([]model.RetailerPriceRow, len(products))
	for i, p := range products {
		row := model.RetailerPriceRow{Product: p, Quotes: make(map[model.RetailerID]model.PriceQuote, len(s.Adapters))}
		for j, a := range s.Adapters {
			q := cells[i][j]
			if !done[i][j] {
				q = model.Failed(a.ID(), p, model.StatusNetworkError, err)
			}
			row.Quotes[a.ID()] = q
		}
		rows[i] = row
	}
	if err != nil {
		s.Log.Warn().Err(err).Int("completed", completed).Int("total", total).Msg("scan cancelled")
	}
	return rows, err
}

// quote runs one adapter call. A panicking adapter becomes a
// MalformedResponse cell.
func (s *Scanner) quote(ctx context.Context, a retailer.Adapter, p model.ProductRef) (q model.PriceQuote) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			q = model.Failed(a.ID(), p, model.StatusMalformedResponse, fmt.Errorf("adapter panic: %v", r))
		}
		s.Metrics.ObserveQuote(string(a.ID()), q.Status.String(), time.Since(start))

		switch q.Status {
		case model.StatusOk:
		case model.StatusNotFound:
			s.Log.Debug().Str("retailer", string(a.ID())).Str("ean", p.EAN).Err(q.Err).Msg("not found")
		default:
			s.Log.Warn().Str("retailer", string(a.ID())).Str("ean", p.EAN).Str("status", q.Status.String()).Err(q.Err).Msg("quote failed")
		}
	}()

	q = a.Quote(ctx, p)
	q.Retailer, q.Product = a.ID(), p
	return q
}

// Run scans the catalog and builds the comparison table.
func (s *Scanner) Run(ctx context.Context, products []model.ProductRef) (*ComparisonTable, error) {
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	log := s.Log.With().Str("scan", id).Logger()
	log.Info().Int("products", len(products)).Int("retailers", len(s.Adapters)).Msg("scan started")

	started := time.Now()
	rows, err := s.Scan(ctx, products)
	t := Build(rows, TableOptions{
		Retailers:      s.Retailers(),
		Reference:      s.Reference,
		Threshold:      s.Threshold,
		SuggestedPrice: s.SuggestedPrice,
	})
	t.ScanID = id
	t.StartedAt, t.FinishedAt = started, time.Now()

	maxDelta, _ := t.MaxDelta().Float64()
	s.Metrics.ObserveScan(maxDelta)
	for _, w := range t.Warnings {
		log.Warn().
			Str("ean", w.Product.EAN).
			Str("product", w.Product.Name).
			Str("delta", w.Dispersion.Delta.Decimal.String()).
			Msg("high price dispersion")
	}
	log.Info().Dur("elapsed", t.Elapsed()).Int("rows", len(rows)).Int("warnings", len(t.Warnings)).Msg("scan finished")
	return t, err
}
