package retailer

import (
	"context"
	"strings"

	"relevamiento/internal/crawler"
	"relevamiento/internal/model"
)

// Cooperativa reads La Coope en Casa's article detail by internal code.
type Cooperativa struct {
	base
}

func NewCooperativa(cfg ClientConfig, opts ...Option) *Cooperativa {
	return &Cooperativa{base: newBase(model.Cooperativa, cfg, opts)}
}

func (c *Cooperativa) Quote(ctx context.Context, p model.ProductRef) model.PriceQuote {
	code := strings.TrimSpace(p.Code(model.Cooperativa))
	if IsMissingCode(code) {
		return c.notFound(p, "no Cooperativa code")
	}

	q := crawler.Query{}.Add("cod_interno", code).Add("simple", "false")
	resp, err := c.client.GetJSON(ctx, c.cfg.url("/api/articulo/detalle"), q, nil)
	if err != nil {
		return c.fail(p, err)
	}
	datos := resp.Get("datos")
	if datos.IsNull() {
		return c.notFound(p, "article not found")
	}

	eff := positive(datos.Get("precio"))
	list := positive(datos.Get("precio_anterior"))
	if !list.Valid {
		list = eff
	}
	if !eff.Valid {
		eff = list
	}
	if !eff.Valid {
		return c.notFound(p, "no positive price")
	}
	return model.PriceQuote{
		Retailer:       c.id,
		Product:        p,
		ListPrice:      list,
		EffectivePrice: eff,
		OfferText:      c.offers.Describe(ctx, list, eff, nil, nil),
		Status:         model.StatusOk,
		SKU:            code,
	}
}
