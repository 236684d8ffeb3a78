package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"relevamiento/internal/market"
	"relevamiento/internal/model"
)

func quote(r model.RetailerID, price string) model.PriceQuote {
	d := decimal.NewNullDecimal(decimal.RequireFromString(price))
	return model.PriceQuote{Retailer: r, ListPrice: d, EffectivePrice: d, Status: model.StatusOk}
}

func table() *market.ComparisonTable {
	p := model.ProductRef{Name: "Coca Cola 2.25 L", EAN: "7790895000997", Category: "Bebidas", Brand: "Coca Cola",
		SuggestedPrice: decimal.NewNullDecimal(decimal.NewFromInt(1000))}
	approx := quote(model.Coto, "980.4")
	approx.ApproximateMatch = true
	approx.SKU = "123"
	row := model.RetailerPriceRow{Product: p, Quotes: map[model.RetailerID]model.PriceQuote{
		model.Carrefour: quote(model.Carrefour, "1000"),
		model.Dia:       quote(model.Dia, "1050"),
		model.Coto:      approx,
		model.Jumbo:     model.Failed(model.Jumbo, p, model.StatusNetworkError, errors.New("status 500")),
	}}
	t := market.Build([]model.RetailerPriceRow{row}, market.TableOptions{
		Retailers: []model.RetailerID{model.Carrefour, model.Dia, model.Coto, model.Jumbo},
		Reference: model.Carrefour,
	})
	t.FinishedAt = time.Date(2026, 3, 5, 14, 7, 0, 0, time.UTC)
	return t
}

func records(t *testing.T, b *bytes.Buffer) [][]string {
	t.Helper()
	recs, err := csv.NewReader(b).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	return recs
}

func TestWritePrices(t *testing.T) {
	var b bytes.Buffer
	if err := WritePrices(&b, table()); err != nil {
		t.Fatal(err)
	}
	recs := records(t, &b)
	want := [][]string{
		{"Categoría", "Marca", "EAN", "Nombre", "Carrefour", "Día", "Coto", "Jumbo"},
		{"Bebidas", "Coca Cola", "7790895000997", "Coca Cola 2.25 L", "1000", "1050", "980", ""},
	}
	if len(recs) != len(want) {
		t.Fatalf("records %v", recs)
	}
	for i := range want {
		if strings.Join(recs[i], "|") != strings.Join(want[i], "|") {
			t.Fatalf("row %d = %v, want %v", i, recs[i], want[i])
		}
	}
}

func TestWriteVsReference(t *testing.T) {
	var b bytes.Buffer
	if err := WriteVsReference(&b, table()); err != nil {
		t.Fatal(err)
	}
	got := records(t, &b)[1][4:]
	want := []string{"", "+5.0%", "-2.0%", ""}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPercent(t *testing.T) {
	cases := map[string]string{"0": "+0.0%", "0.123": "+12.3%", "-0.0004": "+0.0%", "-0.5": "-50.0%"}
	for in, want := range cases {
		if got := Percent(decimal.NewNullDecimal(decimal.RequireFromString(in))); got != want {
			t.Errorf("Percent(%s) = %q, want %q", in, got, want)
		}
	}
	if Percent(decimal.NullDecimal{}) != "" {
		t.Fatalf("unknown percent must be blank")
	}
}

func TestWriteCategoryIndex(t *testing.T) {
	var b bytes.Buffer
	if err := WriteCategoryIndex(&b, table()); err != nil {
		t.Fatal(err)
	}
	recs := records(t, &b)
	if len(recs) != 2 || strings.Join(recs[1], "|") != "Bebidas|100|105|98|" {
		t.Fatalf("records %v", recs)
	}
}

func TestWriteReview(t *testing.T) {
	var b bytes.Buffer
	if err := WriteReview(&b, table()); err != nil {
		t.Fatal(err)
	}
	recs := records(t, &b)
	if len(recs) != 3 {
		t.Fatalf("expected header plus two cells, got %v", recs)
	}
	if recs[1][4] != "Coto" || recs[1][6] != "coincidencia aproximada" || recs[1][7] != "123" {
		t.Fatalf("approximate row %v", recs[1])
	}
	if recs[2][4] != "Jumbo" || recs[2][5] != "network_error" || recs[2][6] != "status 500" || recs[2][8] != "" {
		t.Fatalf("failed row %v", recs[2])
	}
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteAll(dir, table())
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != len(Kinds) {
		t.Fatalf("paths %v", paths)
	}
	if filepath.Base(paths[1]) != "relevar_mercado_precios_2026-03-05_1407.csv" {
		t.Fatalf("name %s", paths[1])
	}
	for _, p := range paths {
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Fatalf("%s: %v", p, err)
		}
	}
}
