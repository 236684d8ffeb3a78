// Package pricefmt parses and renders Argentine price strings.
package pricefmt

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonNumeric = regexp.MustCompile(`[^0-9.,\-]`)

// Parse converts a raw retailer value into a decimal. It accepts native
// numbers, json.Number, decimals and strings such as "1.795,00", "649,35"
// or "$1126.72c/u". Anything unparseable yields an invalid NullDecimal,
// which callers treat as "price unknown".
func Parse(raw any) decimal.NullDecimal {
	switch v := raw.(type) {
	case nil:
		return decimal.NullDecimal{}
	case decimal.Decimal:
		return decimal.NewNullDecimal(v)
	case decimal.NullDecimal:
		return v
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v))
	case json.Number:
		// Literals like 4.47e3 are valid JSON numbers; the string cleaner
		// would drop the exponent.
		if d, err := decimal.NewFromString(string(v)); err == nil {
			return decimal.NewNullDecimal(d)
		}
		return ParseString(string(v))
	case string:
		return ParseString(v)
	}
	return decimal.NullDecimal{}
}

func fromFloat(f float64) decimal.NullDecimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

// ParseString applies the Argentine disambiguation rules:
// one comma after the last period means periods are thousands separators;
// one comma and no period means the comma is the decimal point;
// anything else is parsed as a plain number.
func ParseString(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "c/u", "")
	s = strings.ReplaceAll(s, `c\u002fu`, "")
	s = nonNumeric.ReplaceAllString(s, "")
	if s == "" {
		return decimal.NullDecimal{}
	}

	commas := strings.Count(s, ",")
	periods := strings.Count(s, ".")
	switch {
	case commas == 1 && periods >= 1 && strings.LastIndex(s, ",") > strings.LastIndex(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case commas == 1 && periods == 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Format renders two decimals with a comma separator and no thousands
// grouping: 1795 -> "1795,00".
func Format(v decimal.Decimal) string {
	return strings.Replace(v.StringFixed(2), ".", ",", 1)
}

// FormatInteger renders the integer used by the market tables, rounding
// half to even. Unknown or non-positive values render as "".
func FormatInteger(v decimal.NullDecimal) string {
	if !v.Valid || !v.Decimal.IsPositive() {
		return ""
	}
	return v.Decimal.RoundBank(0).String()
}
