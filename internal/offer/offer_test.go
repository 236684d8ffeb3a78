package offer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"relevamiento/internal/crawler"
)

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestSimplify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"3x2 en toda la línea", "3x2"},
		{"Llevá 4 X 3", "4x3"},
		{"2da al 50%", "2da al 50%"},
		{"Llevando 2da unidad al 70% Max 6 unidades", "2da unidad al 70%"},
		{"2do al 80% SURTIDO", "2do al 80%"},
		{"2da al 50% Reg. $1200", "2da al 50%"},
		{"70% 2da", "70% 2da"},
		{"  Precio   especial  ", "Precio especial"},
		{"<b>3x2</b> lácteos", "3x2"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Simplify(c.in); got != c.want {
			t.Errorf("Simplify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestJoin_DedupesAfterSimplify(t *testing.T) {
	got := Join([]string{"3x2 Lácteos", "3x2 seleccionados", "2da al 50%", ""})
	if got != "3x2 | 2da al 50%" {
		t.Fatalf("got %q", got)
	}
}

func TestUnitDiscount(t *testing.T) {
	if got := UnitDiscount(price("4470"), price("3800")); got != 15 {
		t.Fatalf("got %d", got)
	}
	if got := UnitDiscountText(price("4470"), price("3800")); got != "15% off" {
		t.Fatalf("got %q", got)
	}
	if got := UnitDiscountText(price("4470"), price("4470")); got != "" {
		t.Fatalf("no discount expected, got %q", got)
	}
	if got := UnitDiscount(decimal.NullDecimal{}, price("10")); got != 0 {
		t.Fatalf("unknown list price must not discount")
	}
	if got := UnitDiscount(price("0"), price("10")); got != 0 {
		t.Fatalf("zero list price must not discount")
	}
	// 14.5% and 15.5% round to the even neighbour.
	if got := UnitDiscount(price("200"), price("171")); got != 14 {
		t.Fatalf("14.5%% rounded to %d", got)
	}
	if got := UnitDiscount(price("200"), price("169")); got != 16 {
		t.Fatalf("15.5%% rounded to %d", got)
	}
}

// fakeCheckout serves a VTEX checkout whose promotion appears at promoQty units.
type fakeCheckout struct {
	promoQty int
	calls    atomic.Int32
	paths    []string
	mu       sync.Mutex
}

func (f *fakeCheckout) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.URL.Path == "/api/checkout/pub/orderForm":
		w.Write([]byte(`{"orderFormId":"of-1","items":[]}`))
	case strings.HasSuffix(r.URL.Path, "/items"), strings.HasSuffix(r.URL.Path, "/items/update"):
		qty := 0
		for _, q := range []string{`"quantity":2`, `"quantity":3`, `"quantity":4`} {
			if strings.Contains(string(body), q) {
				qty = int(q[len(q)-1] - '0')
			}
		}
		if qty >= f.promoQty {
			w.Write([]byte(`{"ratesAndBenefitsData":{"rateAndBenefitsIdentifiers":[
				{"id":"p1","name":"3x2 Gaseosas Max 3"},{"id":"p1","name":"3x2 Gaseosas Max 3"}]}}`))
			return
		}
		w.Write([]byte(`{"ratesAndBenefitsData":{"rateAndBenefitsIdentifiers":[]}}`))
	default:
		http.NotFound(w, r)
	}
}

func newProbe(srv *httptest.Server, depth int) *CartProbe {
	return &CartProbe{Client: crawler.NewClient(srv.Client(), nil), BaseURL: srv.URL, SalesChannel: "1", Depth: depth}
}

func TestCartProbe_EscalatesQuantity(t *testing.T) {
	fc := &fakeCheckout{promoQty: 3}
	srv := httptest.NewServer(fc)
	defer srv.Close()

	ids, err := newProbe(srv, 3).Run(context.Background(), "123", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "3x2 Gaseosas Max 3" {
		t.Fatalf("ids %v", ids)
	}
	want := []string{"/api/checkout/pub/orderForm", "/api/checkout/pub/orderForm/of-1/items", "/api/checkout/pub/orderForm/of-1/items/update"}
	if len(fc.paths) != len(want) {
		t.Fatalf("paths %v", fc.paths)
	}
	for i := range want {
		if fc.paths[i] != want[i] {
			t.Fatalf("paths %v", fc.paths)
		}
	}
}

func TestCartProbe_DepthFour(t *testing.T) {
	fc := &fakeCheckout{promoQty: 4}
	srv := httptest.NewServer(fc)
	defer srv.Close()

	ids, err := newProbe(srv, 3).Run(context.Background(), "123", "1")
	if err != nil || len(ids) != 0 {
		t.Fatalf("depth 3 should find nothing: %v %v", ids, err)
	}
	ids, err = newProbe(srv, 4).Run(context.Background(), "123", "1")
	if err != nil || len(ids) != 1 {
		t.Fatalf("depth 4 should find the promotion: %v %v", ids, err)
	}
}

func TestDetector_UnitDiscountSkipsProbe(t *testing.T) {
	fc := &fakeCheckout{promoQty: 2}
	srv := httptest.NewServer(fc)
	defer srv.Close()

	d := &Detector{Probe: newProbe(srv, 3), Cache: NewMemoryCache(), Log: zerolog.Nop()}
	got := d.Describe(context.Background(), price("4470"), price("3800"), nil, &ProbeTarget{EAN: "715951", SKU: "1", Seller: "1"})
	if got != "15% off" {
		t.Fatalf("got %q", got)
	}
	if fc.calls.Load() != 0 {
		t.Fatalf("cart probe must be skipped, saw %d calls", fc.calls.Load())
	}
}

func TestDetector_DeclaredLabelsSkipProbe(t *testing.T) {
	fc := &fakeCheckout{promoQty: 2}
	srv := httptest.NewServer(fc)
	defer srv.Close()

	d := &Detector{Probe: newProbe(srv, 3), Cache: NewMemoryCache(), Log: zerolog.Nop()}
	got := d.Describe(context.Background(), price("100"), price("100"), []string{"2da al 70% Max 12"}, &ProbeTarget{EAN: "1", SKU: "1", Seller: "1"})
	if got != "2da al 70%" || fc.calls.Load() != 0 {
		t.Fatalf("got %q calls %d", got, fc.calls.Load())
	}
}

func TestDetector_CachesProbePerKey(t *testing.T) {
	fc := &fakeCheckout{promoQty: 2}
	srv := httptest.NewServer(fc)
	defer srv.Close()

	cache := NewMemoryCache()
	d := &Detector{Probe: newProbe(srv, 3), Cache: cache, Segment: "seg", Log: zerolog.Nop()}
	target := &ProbeTarget{EAN: "715951", SKU: "55", Seller: "1"}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.Describe(context.Background(), price("100"), price("100"), nil, target)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		if r != "3x2" {
			t.Fatalf("results %v", results)
		}
	}
	// One probe = create cart + add items.
	if got := fc.calls.Load(); got != 2 {
		t.Fatalf("expected a single probe (2 calls), got %d", got)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache entries %d", cache.Len())
	}

	// A different depth is a different key.
	d2 := &Detector{Probe: newProbe(srv, 4), Cache: cache, Segment: "seg", Log: zerolog.Nop()}
	d2.Describe(context.Background(), price("100"), price("100"), nil, target)
	if cache.Len() != 2 {
		t.Fatalf("depth must be part of the key, entries %d", cache.Len())
	}
}

func TestDetector_NoPromotionIsCachedAsEmpty(t *testing.T) {
	fc := &fakeCheckout{promoQty: 9}
	srv := httptest.NewServer(fc)
	defer srv.Close()

	d := &Detector{Probe: newProbe(srv, 3), Cache: NewMemoryCache(), Log: zerolog.Nop()}
	target := &ProbeTarget{EAN: "1", SKU: "1", Seller: "1"}
	if got := d.Describe(context.Background(), price("1"), price("1"), nil, target); got != "" {
		t.Fatalf("got %q", got)
	}
	before := fc.calls.Load()
	d.Describe(context.Background(), price("1"), price("1"), nil, target)
	if fc.calls.Load() != before {
		t.Fatalf("empty result should be served from cache")
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := ProbeKey{EAN: "e", Depth: i % 5}.String()
			c.Set(context.Background(), key, "v")
			c.Get(context.Background(), key)
		}(i)
	}
	wg.Wait()
	if c.Len() != 5 {
		t.Fatalf("entries %d", c.Len())
	}
}
