package offer

import (
	"strconv"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// UnitDiscount returns round((1 - effective/list) * 100) when the buyer
// pays less than the list price for a single unit, and 0 otherwise.
func UnitDiscount(list, effective decimal.NullDecimal) int {
	if !list.Valid || !effective.Valid {
		return 0
	}
	l, e := list.Decimal, effective.Decimal
	if !l.IsPositive() || !e.IsPositive() || !e.LessThan(l) {
		return 0
	}
	pct := decimal.NewFromInt(1).Sub(e.Div(l)).Mul(hundred).RoundBank(0)
	return int(pct.IntPart())
}

// UnitDiscountText renders the discount as "15% off", or "" when there is none.
func UnitDiscountText(list, effective decimal.NullDecimal) string {
	pct := UnitDiscount(list, effective)
	if pct <= 0 {
		return ""
	}
	return strconv.Itoa(pct) + "% off"
}
