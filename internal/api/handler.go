// Package api exposes scans over HTTP: start one, follow its progress,
// cancel it, and download its CSV exports.
package api

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"relevamiento/internal/catalog"
	"relevamiento/internal/market"
	"relevamiento/internal/model"
	"relevamiento/internal/report"
)

// ScannerFactory builds a scanner bound to one scan ID.
type ScannerFactory func(scanID string, progress market.ProgressFunc) (*market.Scanner, error)

// Finished scans are kept for this long, and at most this many of them.
const (
	DefaultRetention = time.Hour
	DefaultMaxScans  = 20
)

type Handler struct {
	Catalog    catalog.Provider
	NewScanner ScannerFactory
	Log        zerolog.Logger

	Retention time.Duration
	MaxScans  int

	mu    sync.Mutex
	scans map[string]*job
}

func NewHandler(c catalog.Provider, f ScannerFactory, log zerolog.Logger) *Handler {
	return &Handler{
		Catalog:    c,
		NewScanner: f,
		Log:        log,
		Retention:  DefaultRetention,
		MaxScans:   DefaultMaxScans,
		scans:      map[string]*job{},
	}
}

type job struct {
	mu     sync.Mutex
	id     string
	state  string // running | done | cancelled
	done   int
	total  int
	err    error
	table  *market.ComparisonTable
	ended  time.Time
	cancel context.CancelFunc
	finish chan struct{}
}

func (j *job) endedAt() (time.Time, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ended, !j.ended.IsZero()
}

// prune drops finished scans older than Retention, then the oldest
// finished ones beyond MaxScans. Running scans are never dropped.
func (h *Handler) prune(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	type finished struct {
		id    string
		ended time.Time
	}
	var kept []finished
	for id, j := range h.scans {
		ended, ok := j.endedAt()
		if !ok {
			continue
		}
		if h.Retention > 0 && now.Sub(ended) > h.Retention {
			delete(h.scans, id)
			continue
		}
		kept = append(kept, finished{id, ended})
	}
	if h.MaxScans <= 0 || len(kept) <= h.MaxScans {
		return
	}
	sort.Slice(kept, func(a, b int) bool { return kept[a].ended.Before(kept[b].ended) })
	for _, f := range kept[:len(kept)-h.MaxScans] {
		delete(h.scans, f.id)
	}
}

func (j *job) progress(done, total int) {
	j.mu.Lock()
	j.done, j.total = done, total
	j.mu.Unlock()
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.POST("/scans", h.StartScan)
		api.GET("/scans/:id", h.GetScan)
		api.DELETE("/scans/:id", h.CancelScan)
		api.GET("/scans/:id/export/:kind", h.Export)
	}
}

// StartScan launches a scan over the whole catalog. With ?wait=true it
// blocks until the scan ends and returns the table.
func (h *Handler) StartScan(c *gin.Context) {
	products, err := h.Catalog.Products(c.Request.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("catalog read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read catalog"})
		return
	}
	if len(products) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "catalog is empty"})
		return
	}

	h.prune(time.Now())
	j := &job{id: uuid.NewString(), state: "running", finish: make(chan struct{})}
	scanner, err := h.NewScanner(j.id, j.progress)
	if err != nil {
		h.Log.Error().Err(err).Msg("scanner setup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build scanner"})
		return
	}

	// The scan outlives the request unless the caller waits for it.
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel, j.total = cancel, len(products)*len(scanner.Adapters)
	h.mu.Lock()
	h.scans[j.id] = j
	h.mu.Unlock()

	go func() {
		defer close(j.finish)
		defer cancel()
		t, err := scanner.Run(ctx, products)
		j.mu.Lock()
		defer j.mu.Unlock()
		j.table, j.err, j.ended = t, err, time.Now()
		if err != nil {
			j.state = "cancelled"
		} else {
			j.state = "done"
		}
	}()

	if c.Query("wait") != "true" {
		c.JSON(http.StatusAccepted, gin.H{"id": j.id})
		return
	}
	select {
	case <-j.finish:
	case <-c.Request.Context().Done():
		cancel()
		<-j.finish
	}
	c.JSON(http.StatusOK, j.view())
}

func (h *Handler) lookup(c *gin.Context) (*job, bool) {
	h.mu.Lock()
	j, ok := h.scans[c.Param("id")]
	h.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
	}
	return j, ok
}

func (h *Handler) GetScan(c *gin.Context) {
	j, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, j.view())
}

// CancelScan stops dispatching new lookups. Cells already in flight
// finish; the rest are reported as network errors.
func (h *Handler) CancelScan(c *gin.Context) {
	j, ok := h.lookup(c)
	if !ok {
		return
	}
	j.cancel()
	c.JSON(http.StatusAccepted, gin.H{"id": j.id})
}

func (h *Handler) Export(c *gin.Context) {
	j, ok := h.lookup(c)
	if !ok {
		return
	}
	kind := report.Kind(c.Param("kind"))
	if !knownKind(kind) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown export"})
		return
	}
	j.mu.Lock()
	t := j.table
	j.mu.Unlock()
	if t == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "scan still running"})
		return
	}

	var b bytes.Buffer
	if err := report.Write(&b, kind, t); err != nil {
		h.Log.Error().Err(err).Str("scan", j.id).Str("kind", string(kind)).Msg("export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render export"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.FileName(kind, t.FinishedAt)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", b.Bytes())
}

func knownKind(k report.Kind) bool {
	for _, known := range report.Kinds {
		if k == known {
			return true
		}
	}
	return false
}

type scanView struct {
	ID         string              `json:"id"`
	State      string              `json:"state"`
	Done       int                 `json:"done"`
	Total      int                 `json:"total"`
	Error      string              `json:"error,omitempty"`
	Retailers  []model.RetailerID  `json:"retailers,omitempty"`
	Reference  model.RetailerID    `json:"reference,omitempty"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Rows       []rowView           `json:"rows,omitempty"`
	Warnings   []warningView       `json:"warnings,omitempty"`
	Categories map[string]indexRow `json:"categories,omitempty"`
}

type quoteView struct {
	model.PriceQuote
	Error string `json:"error,omitempty"`
}

type rowView struct {
	Product     model.ProductRef            `json:"product"`
	Quotes      []quoteView                 `json:"quotes"`
	Min         string                      `json:"min,omitempty"`
	Max         string                      `json:"max,omitempty"`
	Delta       string                      `json:"delta,omitempty"`
	Cheapest    []model.RetailerID          `json:"cheapest,omitempty"`
	VsReference map[model.RetailerID]string `json:"vs_reference"`
}

type warningView struct {
	EAN     string `json:"ean"`
	Product string `json:"product"`
	Delta   string `json:"delta"`
}

type indexCell struct {
	Index int    `json:"index"`
	Tier  string `json:"tier"`
}

type indexRow map[model.RetailerID]indexCell

func (j *job) view() scanView {
	j.mu.Lock()
	defer j.mu.Unlock()
	v := scanView{ID: j.id, State: j.state, Done: j.done, Total: j.total}
	if j.err != nil {
		v.Error = j.err.Error()
	}
	t := j.table
	if t == nil {
		return v
	}
	v.Retailers, v.Reference = t.Retailers, t.Reference
	v.StartedAt, v.FinishedAt = &t.StartedAt, &t.FinishedAt
	for i, row := range t.Rows {
		rv := rowView{Product: row.Product, VsReference: map[model.RetailerID]string{}}
		for _, r := range t.Retailers {
			q := quoteView{PriceQuote: row.Quotes[r]}
			if q.Err != nil {
				q.Error = q.Err.Error()
			}
			rv.Quotes = append(rv.Quotes, q)
			if pct := report.Percent(t.VsReference[i][r]); pct != "" {
				rv.VsReference[r] = pct
			}
		}
		if d := t.Dispersion[i]; d.Delta.Valid {
			rv.Min, rv.Max, rv.Delta = d.Min.Decimal.String(), d.Max.Decimal.String(), d.Delta.Decimal.String()
		}
		rv.Cheapest = market.Cheapest(row, t.Retailers)
		v.Rows = append(v.Rows, rv)
	}
	for _, w := range t.Warnings {
		v.Warnings = append(v.Warnings, warningView{EAN: w.Product.EAN, Product: w.Product.Name, Delta: w.Dispersion.Delta.Decimal.String()})
	}
	v.Categories = map[string]indexRow{}
	for _, cat := range t.Categories.Categories {
		ir := indexRow{}
		for _, r := range t.Retailers {
			if n, ok := t.Categories.Index(cat, r); ok {
				ir[r] = indexCell{Index: n, Tier: market.TierOf(n).String()}
			}
		}
		v.Categories[cat] = ir
	}
	return v
}
