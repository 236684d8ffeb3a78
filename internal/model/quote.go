package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Status is the outcome of one (product, retailer) lookup.
type Status int

const (
	StatusOk Status = iota
	StatusNotFound
	StatusRateLimited
	StatusMalformedResponse
	StatusNetworkError
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusRateLimited:
		return "rate_limited"
	case StatusMalformedResponse:
		return "malformed_response"
	case StatusNetworkError:
		return "network_error"
	}
	return "unknown"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// PriceQuote is the normalized result of one adapter call.
type PriceQuote struct {
	Retailer       RetailerID          `json:"retailer"`
	Product        ProductRef          `json:"-"`
	ListPrice      decimal.NullDecimal `json:"list_price"`
	EffectivePrice decimal.NullDecimal `json:"effective_price"`
	OfferText      string              `json:"offer_text"`
	Status         Status              `json:"status"`

	// ApproximateMatch is set when no returned item matched the EAN/code
	// exactly and a fallback item was priced instead.
	ApproximateMatch bool   `json:"approximate_match,omitempty"`
	SKU              string `json:"sku,omitempty"`
	Err              error  `json:"-"`
}

// Usable reports whether the quote carries a positive effective price.
func (q PriceQuote) Usable() bool {
	return q.EffectivePrice.Valid && q.EffectivePrice.Decimal.IsPositive()
}

// Failed builds a quote with no price for the given status.
func Failed(r RetailerID, p ProductRef, st Status, err error) PriceQuote {
	return PriceQuote{Retailer: r, Product: p, Status: st, Err: err}
}

// RetailerPriceRow holds one product and exactly one quote per configured retailer.
type RetailerPriceRow struct {
	Product ProductRef                `json:"product"`
	Quotes  map[RetailerID]PriceQuote `json:"quotes"`
}

// Price returns the effective price for r when it is usable.
func (row RetailerPriceRow) Price(r RetailerID) (decimal.Decimal, bool) {
	q, ok := row.Quotes[r]
	if !ok || !q.Usable() {
		return decimal.Decimal{}, false
	}
	return q.EffectivePrice.Decimal, true
}
