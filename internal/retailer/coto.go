package retailer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"relevamiento/internal/crawler"
	"relevamiento/internal/jsontree"
	"relevamiento/internal/model"
	"relevamiento/internal/offer"
)

// Record markers in Coto's Endeca search payload.
var cotoMarkers = []string{"record.id", "product.repositoryId", "product.displayName", "product.eanPrincipal"}

// Fields tried, in order, for the detail list price.
var cotoPriceKeys = []string{"sku.activePrice", "activePrice", "sku.price", "sku.listPrice", "price", "listPrice"}

// Coto resolves the EAN to a record id, then reads the product detail.
type Coto struct {
	base
}

func NewCoto(cfg ClientConfig, opts ...Option) *Coto {
	return &Coto{base: newBase(model.Coto, cfg, opts)}
}

func (c *Coto) branch() string {
	if c.cfg.Branch == "" {
		return "200"
	}
	return c.cfg.Branch
}

func (c *Coto) Quote(ctx context.Context, p model.ProductRef) model.PriceQuote {
	ean := strings.TrimSpace(p.EAN)
	if IsMissingCode(ean) {
		return c.notFound(p, "no EAN")
	}
	if code := p.Code(c.id); code != "" && IsMissingCode(code) {
		return c.notFound(p, "marked missing in catalog")
	}

	q := crawler.Query{}.
		Add("Dy", "1").
		Add("Ntt", ean).
		Add("Ntk", "product.eanPrincipal").
		Add("idSucursal", c.branch()).
		Add("format", "json")
	search, err := c.client.GetJSON(ctx, c.cfg.url("/sitios/cdigi/categoria"), q, nil)
	if err != nil {
		return c.failCoto(p, err)
	}

	recordID := ""
	for rec := range jsontree.IterRecords(search, cotoMarkers...) {
		if strings.TrimSpace(jsontree.FindText(rec, "product.eanPrincipal")) == ean {
			recordID = strings.TrimSpace(jsontree.FindText(rec, "record.id"))
			break
		}
	}
	if recordID == "" {
		return c.notFound(p, "no record for EAN")
	}

	productURL := c.cfg.url("/sitios/cdigi/productos/_/R-" + recordID)
	dq := crawler.Query{}.Add("Dy", "1").Add("idSucursal", c.branch()).Add("format", "json")
	detail, err := c.client.GetJSON(ctx, productURL, dq, http.Header{"Referer": {productURL}})
	if err != nil {
		return c.failCoto(p, err)
	}

	list := cotoListPrice(detail)
	if !list.Valid {
		return c.notFound(p, "no price in detail")
	}
	eff, labels := c.discounts(detail)
	if !eff.Valid {
		eff = list
	}
	text := offer.Join(labels)
	if text == "" {
		text = offer.UnitDiscountText(list, eff)
	}
	return model.PriceQuote{
		Retailer:       c.id,
		Product:        p,
		ListPrice:      list,
		EffectivePrice: eff,
		OfferText:      text,
		Status:         model.StatusOk,
		SKU:            recordID,
	}
}

// failCoto treats 403 as "not listed": Coto answers unknown EANs that way.
func (c *Coto) failCoto(p model.ProductRef, err error) model.PriceQuote {
	var se *crawler.StatusError
	if errors.As(err, &se) && se.Code == http.StatusForbidden {
		return model.Failed(c.id, p, model.StatusNotFound, err)
	}
	return c.fail(p, err)
}

func cotoListPrice(detail *jsontree.Node) decimal.NullDecimal {
	for _, k := range cotoPriceKeys {
		if v := positive(jsontree.CoerceFirst(jsontree.FindFirst(detail, k))); v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}

// discounts decodes product.dtoDescuentos, a JSON document encoded as a
// string (or a list of such strings). Documents that fail to decode are
// skipped; no discount means the list price applies.
func (c *Coto) discounts(detail *jsontree.Node) (decimal.NullDecimal, []string) {
	raw := jsontree.FindFirst(detail, "product.dtoDescuentos")
	var docs []*jsontree.Node
	collect := func(n *jsontree.Node) {
		switch {
		case n == nil:
		case n.Kind == jsontree.String:
			if strings.TrimSpace(n.Str) == "" {
				return
			}
			inner, err := jsontree.ParseString(n.Str)
			if err != nil {
				c.log.Debug().Err(err).Msg("undecodable dtoDescuentos")
				return
			}
			docs = append(docs, inner)
		case n.Kind == jsontree.Object || n.Kind == jsontree.Array:
			docs = append(docs, n)
		}
	}
	if raw != nil && raw.Kind == jsontree.Array {
		for _, it := range raw.Items {
			collect(it)
		}
	} else {
		collect(raw)
	}

	var price decimal.NullDecimal
	var labels []string
	for _, doc := range docs {
		for rec := range jsontree.IterRecords(doc, "precioDescuento", "textoDescuento") {
			if v := positive(jsontree.CoerceFirst(rec.Get("precioDescuento"))); v.Valid && !price.Valid {
				price = v
			}
			if t := jsontree.CoerceFirst(rec.Get("textoDescuento")).Text(); t != "" {
				labels = append(labels, t)
			}
		}
	}
	return price, labels
}
