package offer

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"relevamiento/internal/observability"
)

// ProbeTarget is what an adapter resolves before a cart probe can run.
type ProbeTarget struct {
	EAN    string
	SKU    string
	Seller string
}

// Detector picks the cheapest available offer signal: a unit discount,
// then declared promotion labels, then (if configured) a cached cart probe.
type Detector struct {
	Probe   *CartProbe
	Cache   Cache
	Segment string
	Log     zerolog.Logger
	Metrics *observability.Registry

	group singleflight.Group
}

// Describe returns the offer descriptor for a quote. target may be nil when
// the retailer is not probed.
func (d *Detector) Describe(ctx context.Context, list, effective decimal.NullDecimal, declared []string, target *ProbeTarget) string {
	if t := UnitDiscountText(list, effective); t != "" {
		return t
	}
	if s := Join(declared); s != "" {
		return s
	}
	if d == nil || d.Probe == nil || target == nil || target.SKU == "" {
		return ""
	}
	return d.probe(ctx, *target)
}

func (d *Detector) probe(ctx context.Context, t ProbeTarget) string {
	key := ProbeKey{EAN: t.EAN, Segment: d.Segment, SalesChannel: d.Probe.SalesChannel, Depth: d.Probe.depth()}.String()
	if d.Cache != nil {
		if v, ok, err := d.Cache.Get(ctx, key); err == nil && ok {
			d.Metrics.ObserveProbe("hit")
			return v
		} else if err != nil {
			d.Log.Warn().Err(err).Str("key", key).Msg("offer cache read failed")
		}
	}

	// Concurrent scans of the same EAN share one probe.
	v, err, _ := d.group.Do(key, func() (any, error) {
		if d.Cache != nil {
			if v, ok, err := d.Cache.Get(ctx, key); err == nil && ok {
				return v, nil
			}
		}
		ids, err := d.Probe.Run(ctx, t.SKU, t.Seller)
		if err != nil {
			return "", err
		}
		out := Join(ids)
		if d.Cache != nil {
			if err := d.Cache.Set(ctx, key, out); err != nil {
				d.Log.Warn().Err(err).Str("key", key).Msg("offer cache write failed")
			}
		}
		return out, nil
	})
	if err != nil {
		d.Metrics.ObserveProbe("error")
		d.Log.Warn().Err(err).Str("ean", t.EAN).Str("sku", t.SKU).Msg("cart probe failed")
		return ""
	}
	d.Metrics.ObserveProbe("miss")
	return strings.TrimSpace(v.(string))
}
