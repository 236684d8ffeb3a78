package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"relevamiento/internal/catalog"
	"relevamiento/internal/config"
	"relevamiento/internal/model"
	"relevamiento/internal/offer"
)

func TestScanner_FromConfig(t *testing.T) {
	cfg := &config.Config{
		WorkerCount:       4,
		ReferenceRetailer: model.Coto,
		Retailers:         []model.RetailerID{model.Carrefour, model.Jumbo, model.Coto},
		OfferProbeDepth:   4,
		OfferCache:        "memory",
		CatalogSource:     "file",
		CatalogPath:       "productos.json",
	}
	env, err := Open(context.Background(), cfg, zerolog.Nop(), false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer env.Close()

	if _, ok := env.Catalog().(catalog.File); !ok {
		t.Fatalf("catalog %T", env.Catalog())
	}
	if _, ok := env.probeCache("x").(*offer.MemoryCache); !ok {
		t.Fatalf("expected in-memory probe cache")
	}

	s, err := env.Scanner("scan-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Retailers()
	if len(got) != 3 || got[1] != model.Jumbo || s.Reference != model.Coto || s.Workers != 4 || s.ID != "scan-1" {
		t.Fatalf("scanner %+v", s)
	}
}

func TestOpen_RedisNeedsURL(t *testing.T) {
	cfg := &config.Config{OfferCache: "redis", CatalogSource: "file"}
	if _, err := Open(context.Background(), cfg, zerolog.Nop(), false); err == nil {
		t.Fatal("expected error without REDIS_URL")
	}
}
