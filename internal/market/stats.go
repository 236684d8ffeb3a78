package market

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"relevamiento/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Dispersion is the spread of a row's usable prices. All fields are
// invalid when fewer than two retailers have a positive price.
type Dispersion struct {
	Min   decimal.NullDecimal `json:"min"`
	Max   decimal.NullDecimal `json:"max"`
	Delta decimal.NullDecimal `json:"delta"`
}

func DispersionOf(row model.RetailerPriceRow) Dispersion {
	var lo, hi decimal.Decimal
	n := 0
	for r := range row.Quotes {
		v, ok := row.Price(r)
		if !ok {
			continue
		}
		if n == 0 || v.LessThan(lo) {
			lo = v
		}
		if n == 0 || v.GreaterThan(hi) {
			hi = v
		}
		n++
	}
	if n < 2 {
		return Dispersion{}
	}
	return Dispersion{
		Min:   decimal.NewNullDecimal(lo),
		Max:   decimal.NewNullDecimal(hi),
		Delta: decimal.NewNullDecimal(hi.Sub(lo)),
	}
}

// Exceeds reports whether the delta is strictly above threshold.
func (d Dispersion) Exceeds(threshold decimal.Decimal) bool {
	return d.Delta.Valid && d.Delta.Decimal.GreaterThan(threshold)
}

// PercentVsReference returns price[r]/price[ref]-1 for every retailer.
// The reference entry is always invalid, as is any entry whose operands
// are missing or non-positive.
func PercentVsReference(row model.RetailerPriceRow, ref model.RetailerID, retailers []model.RetailerID) map[model.RetailerID]decimal.NullDecimal {
	out := make(map[model.RetailerID]decimal.NullDecimal, len(retailers))
	base, baseOK := row.Price(ref)
	for _, r := range retailers {
		if r == ref || !baseOK {
			out[r] = decimal.NullDecimal{}
			continue
		}
		v, ok := row.Price(r)
		if !ok {
			out[r] = decimal.NullDecimal{}
			continue
		}
		out[r] = decimal.NewNullDecimal(v.Div(base).Sub(decimal.NewFromInt(1)))
	}
	return out
}

// Cheapest returns every retailer tied at the row minimum, in the given order.
func Cheapest(row model.RetailerPriceRow, retailers []model.RetailerID) []model.RetailerID {
	d := DispersionOf(row)
	if !d.Min.Valid {
		return nil
	}
	var out []model.RetailerID
	for _, r := range retailers {
		if v, ok := row.Price(r); ok && v.Equal(d.Min.Decimal) {
			out = append(out, r)
		}
	}
	return out
}

// CategoryIndex holds, per category and retailer, the mean effective price
// as a percentage of the suggested price.
type CategoryIndex struct {
	// Categories sorted by name; rows without a category are left out.
	Categories []string
	values     map[string]map[model.RetailerID]int
}

// Index returns the category index for a retailer, if any row qualified.
func (c CategoryIndex) Index(category string, r model.RetailerID) (int, bool) {
	v, ok := c.values[category][r]
	return v, ok
}

// BuildCategoryIndex averages effective/suggested over the rows of each
// category where both are known and positive, and reports it as
// round(mean*100).
func BuildCategoryIndex(rows []model.RetailerPriceRow, retailers []model.RetailerID, suggested func(model.ProductRef) decimal.NullDecimal) CategoryIndex {
	if suggested == nil {
		suggested = func(p model.ProductRef) decimal.NullDecimal { return p.SuggestedPrice }
	}
	type acc struct {
		sum decimal.Decimal
		n   int64
	}
	sums := map[string]map[model.RetailerID]*acc{}
	var idx CategoryIndex

	for _, row := range rows {
		cat := strings.TrimSpace(row.Product.Category)
		if cat == "" {
			continue
		}
		if _, seen := sums[cat]; !seen {
			sums[cat] = map[model.RetailerID]*acc{}
			idx.Categories = append(idx.Categories, cat)
		}
		sp := suggested(row.Product)
		if !sp.Valid || !sp.Decimal.IsPositive() {
			continue
		}
		for _, r := range retailers {
			v, ok := row.Price(r)
			if !ok {
				continue
			}
			a := sums[cat][r]
			if a == nil {
				a = &acc{}
				sums[cat][r] = a
			}
			a.sum = a.sum.Add(v.Div(sp.Decimal))
			a.n++
		}
	}

	sort.Strings(idx.Categories)
	idx.values = make(map[string]map[model.RetailerID]int, len(sums))
	for cat, byRetailer := range sums {
		m := make(map[model.RetailerID]int, len(byRetailer))
		for r, a := range byRetailer {
			mean := a.sum.Div(decimal.NewFromInt(a.n))
			m[r] = int(mean.Mul(hundred).RoundBank(0).IntPart())
		}
		idx.values[cat] = m
	}
	return idx
}

// Tier classifies a price index for display.
type Tier int

const (
	UnderTarget Tier = iota
	Borderline
	OnTarget
)

func TierOf(index int) Tier {
	switch {
	case index >= 99:
		return OnTarget
	case index >= 95:
		return Borderline
	}
	return UnderTarget
}

func (t Tier) String() string {
	switch t {
	case OnTarget:
		return "on-target"
	case Borderline:
		return "borderline"
	}
	return "under target"
}
