package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the scan metrics. A nil *Registry is valid and records nothing.
type Registry struct {
	reg           *prometheus.Registry
	Quotes        *prometheus.CounterVec
	AdapterTime   *prometheus.HistogramVec
	OfferProbes   *prometheus.CounterVec
	Scans         prometheus.Counter
	MaxDispersion prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relevamiento_quotes_total",
		Help: "Cotizaciones por cadena y estado",
	}, []string{"retailer", "status"})
	adapterTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relevamiento_adapter_seconds",
		Help:    "Duración de cada consulta a una cadena",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"retailer"})
	probes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relevamiento_offer_probe_total",
		Help: "Simulaciones de carrito por resultado (hit, miss, error)",
	}, []string{"result"})
	scans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relevamiento_scans_total",
		Help: "Relevamientos ejecutados",
	})
	maxDisp := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relevamiento_max_dispersion",
		Help: "Mayor dispersión (max-min) del último relevamiento",
	})
	r.MustRegister(quotes, adapterTime, probes, scans, maxDisp)
	return &Registry{
		reg:           r,
		Quotes:        quotes,
		AdapterTime:   adapterTime,
		OfferProbes:   probes,
		Scans:         scans,
		MaxDispersion: maxDisp,
	}
}

func (r *Registry) ObserveQuote(retailer, status string, took time.Duration) {
	if r == nil {
		return
	}
	r.Quotes.WithLabelValues(retailer, status).Inc()
	r.AdapterTime.WithLabelValues(retailer).Observe(took.Seconds())
}

func (r *Registry) ObserveProbe(result string) {
	if r == nil {
		return
	}
	r.OfferProbes.WithLabelValues(result).Inc()
}

func (r *Registry) ObserveScan(maxDelta float64) {
	if r == nil {
		return
	}
	r.Scans.Inc()
	r.MaxDispersion.Set(maxDelta)
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Start serves /metrics on port in the background.
func Start(r *Registry, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	go http.ListenAndServe(":"+port, mux)
}
