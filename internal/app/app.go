// Package app wires configuration into the scan components shared by the
// CLI and the HTTP server.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"relevamiento/internal/catalog"
	"relevamiento/internal/config"
	"relevamiento/internal/crawler"
	"relevamiento/internal/db"
	"relevamiento/internal/market"
	"relevamiento/internal/observability"
	"relevamiento/internal/offer"
	"relevamiento/internal/repository"
	"relevamiento/internal/retailer"
)

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func Logger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if cfg.LogFormat == "json" {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	return l.Level(level).With().Timestamp().Logger()
}

// Env holds the long-lived handles a scan needs.
type Env struct {
	Config  *config.Config
	Log     zerolog.Logger
	Metrics *observability.Registry
	Redis   *redis.Client
	Pool    *pgxpool.Pool
}

// Open connects the optional backends. Redis is only dialed when
// OFFER_CACHE=redis; Postgres only when CATALOG_SOURCE=postgres or
// needPool is set.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger, needPool bool) (*Env, error) {
	env := &Env{Config: cfg, Log: log, Metrics: observability.NewRegistry()}
	if cfg.OfferCache == "redis" {
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("OFFER_CACHE=redis requires REDIS_URL")
		}
		env.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := env.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}
	if needPool || cfg.CatalogSource == "postgres" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			env.Close()
			return nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			env.Close()
			return nil, err
		}
		env.Pool = pool
	}
	return env, nil
}

func (e *Env) Close() {
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
}

// Catalog returns the configured product source.
func (e *Env) Catalog() catalog.Provider {
	if e.Pool != nil && e.Config.CatalogSource == "postgres" {
		return &repository.CatalogRepository{DB: e.Pool}
	}
	return catalog.File{Path: e.Config.CatalogPath}
}

// probeCache scopes cart-probe results to one scan.
func (e *Env) probeCache(scanID string) offer.Cache {
	if e.Redis != nil {
		return offer.NewRedisCache(e.Redis, scanID)
	}
	return offer.NewMemoryCache()
}

// Adapters builds one adapter per configured retailer. Probed retailers
// get a detector with a cart probe; the rest only read declared offers.
func (e *Env) Adapters(scanID string) ([]retailer.Adapter, error) {
	httpClient := crawler.NewHTTPClient(e.Config.ConnectTimeout, e.Config.ReadTimeout)
	cache := e.probeCache(scanID)

	out := make([]retailer.Adapter, 0, len(e.Config.Retailers))
	for _, id := range e.Config.Retailers {
		rc := e.Config.Retailer(id, httpClient)
		log := e.Log.With().Str("retailer", string(id)).Logger()
		det := &offer.Detector{Segment: rc.Segment, Log: log, Metrics: e.Metrics}
		if retailer.Probed(id) {
			det.Probe = retailer.NewProbe(rc, e.Config.OfferProbeDepth)
			det.Cache = cache
		}
		a, err := retailer.New(id, rc, retailer.WithLogger(e.Log), retailer.WithDetector(det))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Scanner builds a scanner for one scan over the configured retailers.
func (e *Env) Scanner(scanID string, progress market.ProgressFunc) (*market.Scanner, error) {
	adapters, err := e.Adapters(scanID)
	if err != nil {
		return nil, err
	}
	return &market.Scanner{
		Adapters:   adapters,
		Workers:    e.Config.WorkerCount,
		ID:         scanID,
		Reference:  e.Config.ReferenceRetailer,
		Threshold:  e.Config.DispersionThreshold,
		OnProgress: progress,
		Log:        e.Log,
		Metrics:    e.Metrics,
	}, nil
}
