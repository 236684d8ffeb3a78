package retailer

import (
	"context"
	"strings"

	"relevamiento/internal/crawler"
	"relevamiento/internal/jsontree"
	"relevamiento/internal/model"
	"relevamiento/internal/offer"
	"relevamiento/internal/pricefmt"
)

// Dia searches the VTEX catalog by Día's own skuId instead of EAN.
type Dia struct {
	base
}

func NewDia(cfg ClientConfig, opts ...Option) *Dia {
	return &Dia{base: newBase(model.Dia, cfg, opts)}
}

func (d *Dia) Quote(ctx context.Context, p model.ProductRef) model.PriceQuote {
	code := strings.TrimSpace(p.Code(model.Dia))
	if IsMissingCode(code) {
		return d.notFound(p, "no Día code")
	}

	products, err := d.search(ctx, []crawler.Query{d.withChannel(crawler.Query{}.Add("fq", "skuId:"+code))})
	if err != nil {
		return d.fail(p, err)
	}
	if products.Len() == 0 {
		return d.notFound(p, "no search results")
	}
	choice := pickItem(products, p.Name, func(it *jsontree.Node) bool {
		return strings.TrimSpace(it.Get("itemId").Text()) == code
	})
	if choice.item == nil {
		return d.notFound(p, "no items in search results")
	}

	_, co := commercialOffer(choice.item)
	list, eff := offerPrices(co, ListPriceFirst)
	if !eff.Valid {
		return d.notFound(p, "no positive price")
	}

	// Día shows the promotional price itself as the offer.
	text := offer.Join(teasers(co))
	if !eff.Decimal.Equal(list.Decimal) {
		text = pricefmt.Format(eff.Decimal)
	}
	return model.PriceQuote{
		Retailer:         d.id,
		Product:          p,
		ListPrice:        list,
		EffectivePrice:   eff,
		OfferText:        text,
		Status:           model.StatusOk,
		ApproximateMatch: !choice.exact,
		SKU:              code,
	}
}
