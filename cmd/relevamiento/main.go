package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"relevamiento/internal/app"
	"relevamiento/internal/catalog"
	"relevamiento/internal/config"
	"relevamiento/internal/observability"
	"relevamiento/internal/pricefmt"
	"relevamiento/internal/report"
	"relevamiento/internal/repository"
)

// go run ./cmd/relevamiento -catalog=productos.json -out=./exports
// go run ./cmd/relevamiento -retailers=carrefour,coto -threshold=300
// go run ./cmd/relevamiento -import -catalog=productos.json
func main() {
	cfg := config.Load()

	catalogPath := flag.String("catalog", cfg.CatalogPath, "Catálogo JSON de productos")
	outDir := flag.String("out", ".", "Directorio de salida de los CSV")
	retailers := flag.String("retailers", "", "Cadenas separadas por coma (vacío: todas)")
	threshold := flag.String("threshold", "", "Umbral de dispersión en pesos")
	importOnly := flag.Bool("import", false, "Importa el catálogo a Postgres y termina")
	metrics := flag.Bool("metrics", false, "Expone /metrics en METRICS_PORT durante el relevamiento")
	flag.Parse()

	cfg.CatalogPath = *catalogPath
	if *retailers != "" {
		cfg.Retailers, cfg.IgnoredRetailers = config.ParseRetailers(*retailers)
	}
	if *threshold != "" {
		if v := pricefmt.ParseString(*threshold); v.Valid && v.Decimal.IsPositive() {
			cfg.DispersionThreshold = v.Decimal
		}
	}

	log := app.Logger(cfg)
	for _, r := range cfg.IgnoredRetailers {
		log.Warn().Str("retailer", r).Msg("unknown retailer ignored")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := app.Open(ctx, cfg, log, *importOnly)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer env.Close()

	if *importOnly {
		products, err := catalog.File{Path: cfg.CatalogPath}.Products(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("catalog read failed")
		}
		repo := &repository.CatalogRepository{DB: env.Pool}
		if err := repo.Import(ctx, products); err != nil {
			log.Fatal().Err(err).Msg("catalog import failed")
		}
		log.Info().Int("products", len(products)).Msg("catalog imported")
		return
	}

	if *metrics {
		observability.Start(env.Metrics, cfg.MetricsPort)
	}

	products, err := env.Catalog().Products(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog read failed")
	}
	if len(products) == 0 {
		log.Fatal().Str("catalog", cfg.CatalogPath).Msg("catalog is empty")
	}

	scanID := uuid.NewString()
	last := time.Now()
	progress := func(done, total int) {
		if done == total || time.Since(last) > 2*time.Second {
			last = time.Now()
			log.Info().Int("done", done).Int("total", total).Msg("progress")
		}
	}
	scanner, err := env.Scanner(scanID, progress)
	if err != nil {
		log.Fatal().Err(err).Msg("adapter setup failed")
	}

	table, err := scanner.Run(ctx, products)
	if err != nil {
		log.Warn().Err(err).Msg("scan interrupted, exporting partial table")
	}

	paths, err := report.WriteAll(*outDir, table)
	if err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}
	for _, p := range paths {
		log.Info().Str("file", p).Msg("exported")
	}
	if n := len(table.Review()); n > 0 {
		log.Info().Int("cells", n).Msg("cells to review")
	}
}
