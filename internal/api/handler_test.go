package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"relevamiento/internal/catalog"
	"relevamiento/internal/market"
	"relevamiento/internal/model"
	"relevamiento/internal/retailer"
)

type fixed struct {
	id    model.RetailerID
	price string
}

func (f fixed) ID() model.RetailerID { return f.id }

func (f fixed) Quote(_ context.Context, p model.ProductRef) model.PriceQuote {
	if f.price == "" {
		return model.Failed(f.id, p, model.StatusRateLimited, errors.New("status 429"))
	}
	d := decimal.NewNullDecimal(decimal.RequireFromString(f.price))
	return model.PriceQuote{Retailer: f.id, ListPrice: d, EffectivePrice: d, Status: model.StatusOk}
}

func router(t *testing.T, products catalog.Static) *gin.Engine {
	t.Helper()
	r, _ := routerWithHandler(t, products)
	return r
}

func routerWithHandler(t *testing.T, products catalog.Static) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	factory := func(id string, progress market.ProgressFunc) (*market.Scanner, error) {
		return &market.Scanner{
			Adapters: []retailer.Adapter{
				fixed{model.Carrefour, "1000"},
				fixed{model.Coto, "1100"},
				fixed{model.Dia, ""},
			},
			ID:         id,
			Reference:  model.Carrefour,
			OnProgress: progress,
		}, nil
	}
	r := gin.New()
	h := NewHandler(products, factory, zerolog.Nop())
	h.Register(r)
	return r, h
}

func startAndWait(t *testing.T, r http.Handler) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/scans?wait=true")
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil || v.ID == "" {
		t.Fatalf("start: %d %s", w.Code, w.Body)
	}
	return v.ID
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestStartScan_Wait(t *testing.T) {
	r := router(t, catalog.Static{{Name: "Yerba", EAN: "779", Category: "Almacén",
		SuggestedPrice: decimal.NewNullDecimal(decimal.NewFromInt(1050))}})

	w := do(r, http.MethodPost, "/api/scans?wait=true")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body)
	}
	var v struct {
		ID    string `json:"id"`
		State string `json:"state"`
		Done  int    `json:"done"`
		Total int    `json:"total"`
		Rows  []struct {
			Quotes []struct {
				Retailer string `json:"retailer"`
				Status   string `json:"status"`
				Error    string `json:"error"`
			} `json:"quotes"`
			Delta       string            `json:"delta"`
			Cheapest    []string          `json:"cheapest"`
			VsReference map[string]string `json:"vs_reference"`
		} `json:"rows"`
		Categories map[string]map[string]struct {
			Index int    `json:"index"`
			Tier  string `json:"tier"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.State != "done" || v.Done != 3 || v.Total != 3 || len(v.Rows) != 1 {
		t.Fatalf("view %+v", v)
	}
	row := v.Rows[0]
	if row.Delta != "100" || len(row.Cheapest) != 1 || row.Cheapest[0] != "carrefour" {
		t.Fatalf("row %+v", row)
	}
	if row.VsReference["coto"] != "+10.0%" {
		t.Fatalf("vs reference %v", row.VsReference)
	}
	if q := row.Quotes[2]; q.Retailer != "dia" || q.Status != "rate_limited" || q.Error != "status 429" {
		t.Fatalf("dia quote %+v", q)
	}
	// 1000/1050 -> 95, 1100/1050 -> 105.
	cat := v.Categories["Almacén"]
	if c := cat["carrefour"]; c.Index != 95 || c.Tier != "borderline" {
		t.Fatalf("carrefour index %+v", c)
	}
	if c := cat["coto"]; c.Index != 105 || c.Tier != "on-target" {
		t.Fatalf("coto index %+v", c)
	}
	if _, ok := cat["dia"]; ok {
		t.Fatalf("dia has no price, got %v", cat)
	}

	csv := do(r, http.MethodGet, "/api/scans/"+v.ID+"/export/precios")
	if csv.Code != http.StatusOK || !strings.HasPrefix(csv.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("export %d %s", csv.Code, csv.Header())
	}
	if !strings.Contains(csv.Body.String(), "Yerba") {
		t.Fatalf("export body %s", csv.Body)
	}
}

func TestStartScan_Async(t *testing.T) {
	r := router(t, catalog.Static{{Name: "Yerba", EAN: "779"}})

	w := do(r, http.MethodPost, "/api/scans")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status %d", w.Code)
	}
	var started struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil || started.ID == "" {
		t.Fatalf("body %s: %v", w.Body, err)
	}
	if got := do(r, http.MethodGet, "/api/scans/"+started.ID); got.Code != http.StatusOK {
		t.Fatalf("get %d", got.Code)
	}
	if got := do(r, http.MethodDelete, "/api/scans/"+started.ID); got.Code != http.StatusAccepted {
		t.Fatalf("cancel %d", got.Code)
	}
}

func TestErrors(t *testing.T) {
	r := router(t, catalog.Static{})
	if w := do(r, http.MethodPost, "/api/scans"); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty catalog %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/scans/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown scan %d", w.Code)
	}

	r = router(t, catalog.Static{{Name: "Yerba", EAN: "779"}})
	w := do(r, http.MethodPost, "/api/scans?wait=true")
	var v struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if w := do(r, http.MethodGet, "/api/scans/"+v.ID+"/export/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown export %d", w.Code)
	}
}

func TestFinishedScans_AreEvicted(t *testing.T) {
	r, h := routerWithHandler(t, catalog.Static{{Name: "Yerba", EAN: "779"}})
	h.MaxScans = 1

	first := startAndWait(t, r)
	second := startAndWait(t, r)
	// Starting a third scan prunes down to the newest finished one.
	third := startAndWait(t, r)
	if w := do(r, http.MethodGet, "/api/scans/"+first); w.Code != http.StatusNotFound {
		t.Fatalf("oldest scan still kept: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/scans/"+second); w.Code != http.StatusOK {
		t.Fatalf("newest finished scan dropped before the next start: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/scans/"+third); w.Code != http.StatusOK {
		t.Fatalf("current scan %d", w.Code)
	}

	h.prune(time.Now().Add(2 * DefaultRetention))
	for _, id := range []string{second, third} {
		if w := do(r, http.MethodGet, "/api/scans/"+id); w.Code != http.StatusNotFound {
			t.Fatalf("scan %s outlived retention: %d", id, w.Code)
		}
	}
}
