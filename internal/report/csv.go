// Package report renders a ComparisonTable as the CSV exports the
// commercial team downloads after a scan.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"relevamiento/internal/market"
	"relevamiento/internal/model"
	"relevamiento/internal/pricefmt"
)

var baseHeader = []string{"Categoría", "Marca", "EAN", "Nombre"}

// Kind names one export.
type Kind string

const (
	Prices        Kind = "precios"
	VsReference   Kind = "pct_vs_referencia"
	CategoryIndex Kind = "resumen_categoria_psp"
	Review        Kind = "revisar"
)

// Kinds lists every export in download order.
var Kinds = []Kind{CategoryIndex, Prices, VsReference, Review}

// FileName follows relevar_mercado_<kind>_<yyyy-mm-dd_hhmm>.csv.
func FileName(k Kind, at time.Time) string {
	return fmt.Sprintf("relevar_mercado_%s_%s.csv", k, at.Format("2006-01-02_1504"))
}

// Write renders one export.
func Write(w io.Writer, k Kind, t *market.ComparisonTable) error {
	switch k {
	case Prices:
		return WritePrices(w, t)
	case VsReference:
		return WriteVsReference(w, t)
	case CategoryIndex:
		return WriteCategoryIndex(w, t)
	case Review:
		return WriteReview(w, t)
	}
	return fmt.Errorf("unknown export %q", k)
}

// WriteAll writes every export into dir and returns the file paths.
func WriteAll(dir string, t *market.ComparisonTable) ([]string, error) {
	at := t.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for _, k := range Kinds {
		path := filepath.Join(dir, FileName(k, at))
		if err := writeFile(path, k, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, k Kind, t *market.ComparisonTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, k, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func retailerHeader(first []string, retailers []model.RetailerID) []string {
	h := append([]string(nil), first...)
	for _, r := range retailers {
		h = append(h, r.DisplayName())
	}
	return h
}

func baseCells(p model.ProductRef) []string {
	return []string{p.Category, p.Brand, p.EAN, p.Name}
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	return cw.Error()
}

// WritePrices writes one row per product, with the effective price per
// retailer as an integer. Failed cells are blank.
func WritePrices(w io.Writer, t *market.ComparisonTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(retailerHeader(baseHeader, t.Retailers)); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := baseCells(row.Product)
		for _, r := range t.Retailers {
			cell := ""
			if v, ok := row.Price(r); ok {
				cell = pricefmt.FormatInteger(decimal.NewNullDecimal(v))
			}
			rec = append(rec, cell)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return flush(cw)
}

// Percent renders a ratio as a signed percentage with one decimal, "+5.0%".
func Percent(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	pct := v.Decimal.Mul(decimal.NewFromInt(100)).Round(1)
	s := pct.StringFixed(1)
	if !pct.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}

func WriteVsReference(w io.Writer, t *market.ComparisonTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(retailerHeader(baseHeader, t.Retailers)); err != nil {
		return err
	}
	for i, row := range t.Rows {
		rec := baseCells(row.Product)
		for _, r := range t.Retailers {
			rec = append(rec, Percent(t.VsReference[i][r]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return flush(cw)
}

func WriteCategoryIndex(w io.Writer, t *market.ComparisonTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(retailerHeader([]string{"Categoría"}, t.Retailers)); err != nil {
		return err
	}
	for _, cat := range t.Categories.Categories {
		rec := []string{cat}
		for _, r := range t.Retailers {
			cell := ""
			if v, ok := t.Categories.Index(cat, r); ok {
				cell = fmt.Sprint(v)
			}
			rec = append(rec, cell)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return flush(cw)
}

// WriteReview lists every cell needing a human look, the "Revisar" list.
func WriteReview(w io.Writer, t *market.ComparisonTable) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), baseHeader...), "Cadena", "Estado", "Motivo", "SKU", "Precio")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range t.Review() {
		reason := "coincidencia aproximada"
		if c.Quote.Status != model.StatusOk {
			reason = ""
			if c.Quote.Err != nil {
				reason = c.Quote.Err.Error()
			}
		}
		rec := append(baseCells(c.Product),
			c.Quote.Retailer.DisplayName(),
			c.Quote.Status.String(),
			reason,
			c.Quote.SKU,
			pricefmt.FormatInteger(c.Quote.EffectivePrice),
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return flush(cw)
}
