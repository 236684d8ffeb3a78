package config

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"relevamiento/internal/model"
	"relevamiento/internal/retailer"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	MetricsPort string
	HTTPAddr    string
	WorkerCount int

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	DispersionThreshold decimal.Decimal
	ReferenceRetailer   model.RetailerID
	Retailers           []model.RetailerID
	// IgnoredRetailers holds RETAILERS entries that named no known retailer.
	IgnoredRetailers []string

	OfferProbeDepth int
	OfferCache      string // memory | redis

	CatalogSource string // file | postgres
	CatalogPath   string

	CotoBranch string

	LogLevel  string
	LogFormat string // json | console
}

func Load() *Config {
	// Carga .env desde la raíz del proyecto
	_ = godotenv.Load("../../.env")
	// Si no está, prueba en el directorio actual
	_ = godotenv.Load()
	retailers, ignored := ParseRetailers(os.Getenv("RETAILERS"))
	return &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		MetricsPort:         getEnv("METRICS_PORT", "9090"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		WorkerCount:         getInt("WORKER_COUNT", 8),
		ConnectTimeout:      getDuration("CONNECT_TIMEOUT", 4*time.Second),
		ReadTimeout:         getDuration("READ_TIMEOUT", 18*time.Second),
		DispersionThreshold: getDecimal("DISPERSION_THRESHOLD", decimal.NewFromInt(500)),
		ReferenceRetailer:   getRetailer("REFERENCE_RETAILER", model.Carrefour),
		Retailers:           retailers,
		IgnoredRetailers:    ignored,
		OfferProbeDepth:     getInt("OFFER_PROBE_DEPTH", 3),
		OfferCache:          getEnv("OFFER_CACHE", "memory"),
		CatalogSource:       getEnv("CATALOG_SOURCE", "file"),
		CatalogPath:         getEnv("CATALOG_PATH", "productos.json"),
		CotoBranch:          getEnv("COTO_BRANCH", "200"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
	}
}

// Retailer returns the client settings for id: production defaults
// overridden by <ID>_BASE_URL, <ID>_SC and <ID>_SEGMENT.
func (c *Config) Retailer(id model.RetailerID, httpClient *http.Client) retailer.ClientConfig {
	rc := retailer.Defaults(id)
	prefix := strings.ToUpper(string(id)) + "_"
	rc.BaseURL = getEnv(prefix+"BASE_URL", rc.BaseURL)
	rc.SalesChannel = getEnv(prefix+"SC", rc.SalesChannel)
	rc.Segment = getEnv(prefix+"SEGMENT", rc.Segment)
	if id == model.Coto {
		rc.Branch = c.CotoBranch
	}
	rc.HTTP = httpClient
	return rc
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n > 0 {
		return n
	}
	return d
}

// getDuration accepts Go durations ("4s") or plain seconds ("4").
func getDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
		return dur
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
		return time.Duration(n * float64(time.Second))
	}
	return d
}

func getDecimal(k string, d decimal.Decimal) decimal.Decimal {
	if v, err := decimal.NewFromString(os.Getenv(k)); err == nil && v.IsPositive() {
		return v
	}
	return d
}

func getRetailer(k string, d model.RetailerID) model.RetailerID {
	if r, ok := model.ParseRetailerID(os.Getenv(k)); ok {
		return r
	}
	return d
}

// ParseRetailers reads a comma-separated subset and returns the entries it
// could not resolve. Empty, or nothing valid, means all retailers.
func ParseRetailers(v string) (out []model.RetailerID, ignored []string) {
	if strings.TrimSpace(v) == "" {
		return model.AllRetailers, nil
	}
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if r, ok := model.ParseRetailerID(s); ok {
			out = append(out, r)
		} else {
			ignored = append(ignored, s)
		}
	}
	if len(out) == 0 {
		return model.AllRetailers, ignored
	}
	return out, ignored
}
