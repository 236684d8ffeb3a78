package retailer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"relevamiento/internal/crawler"
	"relevamiento/internal/jsontree"
	"relevamiento/internal/model"
	"relevamiento/internal/offer"
	"relevamiento/internal/pricefmt"
)

const searchPath = "/api/catalog_system/pub/products/search"

// ListPolicy is the commertialOffer field read as the list price.
type ListPolicy int

const (
	// ListPriceFirst reads ListPrice, falling back to Price.
	ListPriceFirst ListPolicy = iota
	// WithoutDiscountFirst reads PriceWithoutDiscount, falling back to
	// Price. Some stores report ListPrice on an inconsistent scale.
	WithoutDiscountFirst
)

// VTEX quotes stores running the VTEX catalog API. The per-store
// differences are the list price policy, the search ladder and the extra
// promotion sources.
type VTEX struct {
	base
	policy ListPolicy
	ladder func(p model.ProductRef, ean string) []crawler.Query

	promotions bool // Jumbo/Vea search-promotions endpoint
	simulate   bool // checkout simulation when the catalog has no price
	refIDAsSKU bool
}

func NewCarrefour(cfg ClientConfig, opts ...Option) *VTEX {
	v := &VTEX{base: newBase(model.Carrefour, cfg, opts), policy: ListPriceFirst}
	v.ladder = v.filters("alternateIds_Ean")
	return v
}

func NewJumbo(cfg ClientConfig, opts ...Option) *VTEX {
	v := &VTEX{base: newBase(model.Jumbo, cfg, opts), policy: WithoutDiscountFirst, promotions: true}
	v.ladder = v.filters("alternateIds_Ean", "ean")
	return v
}

func NewVea(cfg ClientConfig, opts ...Option) *VTEX {
	v := &VTEX{base: newBase(model.Vea, cfg, opts), policy: WithoutDiscountFirst, promotions: true}
	v.ladder = v.filters("alternateIds_Ean")
	return v
}

func NewHiperLibertad(cfg ClientConfig, opts ...Option) *VTEX {
	v := &VTEX{base: newBase(model.HiperLibertad, cfg, opts), policy: ListPriceFirst, simulate: true}
	v.ladder = v.filters("alternateIds_Ean")
	return v
}

// NewChangoMas searches by EAN, then by RefId, then free text.
func NewChangoMas(cfg ClientConfig, opts ...Option) *VTEX {
	v := &VTEX{base: newBase(model.ChangoMas, cfg, opts), policy: ListPriceFirst, refIDAsSKU: true}
	v.ladder = func(p model.ProductRef, ean string) []crawler.Query {
		ref := strings.TrimSpace(p.Code(model.ChangoMas))
		if IsMissingCode(ref) {
			ref = ean
		}
		return []crawler.Query{
			v.withChannel(crawler.Query{}.Add("fq", "alternateIds_Ean:"+ean)),
			v.withChannel(crawler.Query{}.Add("fq", "alternateIds_RefId:"+ref)),
			v.withChannel(crawler.Query{}.Add("ft", ean)),
		}
	}
	return v
}

func (v *VTEX) filters(fields ...string) func(model.ProductRef, string) []crawler.Query {
	return func(_ model.ProductRef, ean string) []crawler.Query {
		out := make([]crawler.Query, 0, len(fields))
		for _, f := range fields {
			out = append(out, v.withChannel(crawler.Query{}.Add("fq", f+":"+ean)))
		}
		return out
	}
}

func (b *base) withChannel(q crawler.Query) crawler.Query {
	if b.cfg.SalesChannel == "" {
		return q
	}
	return q.Add("sc", b.cfg.SalesChannel)
}

func (v *VTEX) Quote(ctx context.Context, p model.ProductRef) model.PriceQuote {
	ean := strings.TrimSpace(p.EAN)
	if IsMissingCode(ean) {
		return v.notFound(p, "no EAN")
	}
	if code := p.Code(v.id); code != "" && IsMissingCode(code) {
		return v.notFound(p, "marked missing in catalog")
	}

	products, err := v.search(ctx, v.ladder(p, ean))
	if err != nil {
		return v.fail(p, err)
	}
	if products.Len() == 0 {
		return v.notFound(p, "no search results")
	}
	choice := pickItem(products, p.Name, matchEAN(ean))
	if choice.item == nil {
		return v.notFound(p, "no items in search results")
	}

	seller, co := commercialOffer(choice.item)
	skuID := strings.TrimSpace(choice.item.Get("itemId").Text())
	list, eff := offerPrices(co, v.policy)
	if !eff.Valid && v.simulate && skuID != "" {
		sim, err := v.simulatedListPrice(ctx, skuID)
		if err != nil {
			return v.fail(p, err)
		}
		list, eff = sim, sim
	}
	if !eff.Valid {
		return v.notFound(p, "no positive price")
	}

	declared := teasers(co)
	if v.promotions && skuID != "" && offer.UnitDiscountText(list, eff) == "" {
		declared = append(declared, v.searchPromotions(ctx, skuID, seller)...)
	}
	var target *offer.ProbeTarget
	if skuID != "" {
		target = &offer.ProbeTarget{EAN: ean, SKU: skuID, Seller: seller}
	}

	sku := skuID
	if v.refIDAsSKU {
		if ref := refID(choice.item); ref != "" {
			sku = ref
		}
	}
	if !choice.exact {
		v.log.Debug().Str("ean", ean).Str("sku", skuID).Msg("no exact item match, using fallback item")
	}
	return model.PriceQuote{
		Retailer:         v.id,
		Product:          p,
		ListPrice:        list,
		EffectivePrice:   eff,
		OfferText:        v.offers.Describe(ctx, list, eff, declared, target),
		Status:           model.StatusOk,
		ApproximateMatch: !choice.exact,
		SKU:              sku,
	}
}

// search runs the query ladder and returns the first non-empty result
// array. A failed attempt falls through to the next one; its error is
// returned only if no attempt produced results.
func (b *base) search(ctx context.Context, ladder []crawler.Query) (*jsontree.Node, error) {
	url := b.cfg.url(searchPath)
	var lastErr error
	for _, q := range ladder {
		data, err := b.client.GetJSON(ctx, url, q, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			b.log.Debug().Err(err).Str("query", q.Encode()).Msg("search attempt failed")
			lastErr = err
			continue
		}
		if data.Kind != jsontree.Array {
			lastErr = fmt.Errorf("%w: search response is not an array", crawler.ErrMalformed)
			continue
		}
		if data.Len() > 0 {
			return data, nil
		}
	}
	return nil, lastErr
}

type itemChoice struct {
	item  *jsontree.Node
	exact bool
}

// pickItem looks for an exact match across every returned product. Without
// one it ranks the first product's items by fuzzy name similarity and
// finally falls back to its first item.
func pickItem(products *jsontree.Node, name string, match func(*jsontree.Node) bool) itemChoice {
	for _, prod := range elems(products) {
		for _, it := range elems(prod.Get("items")) {
			if match(it) {
				return itemChoice{item: it, exact: true}
			}
		}
	}

	candidates := elems(products.Index(0).Get("items"))
	if len(candidates) == 0 {
		return itemChoice{}
	}
	if name = strings.TrimSpace(name); name != "" {
		names := make([]string, len(candidates))
		for i, it := range candidates {
			names[i] = it.Get("nameComplete").Text()
			if names[i] == "" {
				names[i] = it.Get("name").Text()
			}
		}
		if ranks := fuzzy.RankFindNormalizedFold(name, names); len(ranks) > 0 {
			sort.Sort(ranks)
			return itemChoice{item: candidates[ranks[0].OriginalIndex]}
		}
	}
	return itemChoice{item: candidates[0]}
}

func matchEAN(ean string) func(*jsontree.Node) bool {
	return func(it *jsontree.Node) bool {
		if strings.TrimSpace(it.Get("ean").Text()) == ean {
			return true
		}
		for _, ref := range elems(it.Get("referenceId")) {
			if strings.TrimSpace(ref.Get("Value").Text()) == ean {
				return true
			}
		}
		return false
	}
}

func refID(item *jsontree.Node) string {
	for _, ref := range elems(item.Get("referenceId")) {
		if ref.Get("Key").Text() == "RefId" {
			return strings.TrimSpace(ref.Get("Value").Text())
		}
	}
	return ""
}

// commercialOffer returns the first seller id and its commertialOffer.
func commercialOffer(item *jsontree.Node) (string, *jsontree.Node) {
	s := item.Get("sellers").Index(0)
	seller := strings.TrimSpace(s.Get("sellerId").Text())
	if seller == "" {
		seller = "1"
	}
	return seller, s.Get("commertialOffer")
}

func offerPrices(co *jsontree.Node, policy ListPolicy) (list, eff decimal.NullDecimal) {
	price := positive(co.Get("Price"))
	switch policy {
	case WithoutDiscountFirst:
		list = positive(co.Get("PriceWithoutDiscount"))
	default:
		list = positive(co.Get("ListPrice"))
	}
	if !list.Valid {
		list = price
	}
	eff = price
	if !eff.Valid {
		eff = list
	}
	return list, eff
}

func teasers(co *jsontree.Node) []string {
	var out []string
	for _, t := range elems(co.Get("PromotionTeasers")) {
		if name := t.Get("Name").Text(); name != "" {
			out = append(out, name)
		}
	}
	return out
}

type promotionsRequest struct {
	Seller string   `json:"seller"`
	SKUs   []string `json:"skus"`
}

// searchPromotions reads the store's promotion names for a SKU. The
// endpoint is best effort: any failure yields no labels.
func (v *VTEX) searchPromotions(ctx context.Context, sku, seller string) []string {
	resp, err := v.client.PostJSON(ctx, v.cfg.url("/_v/search-promotions"), nil, promotionsRequest{Seller: seller, SKUs: []string{sku}}, nil)
	if err != nil {
		v.log.Debug().Err(err).Str("sku", sku).Msg("search-promotions failed")
		return nil
	}
	hit := jsontree.FindFirst(resp, sku)
	nodes := elems(hit)
	if nodes == nil && hit != nil {
		nodes = []*jsontree.Node{hit}
	}
	var out []string
	for _, n := range nodes {
		if name := n.Get("name").Text(); name != "" {
			out = append(out, name)
		}
	}
	return out
}

type simulationItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Seller   string `json:"seller"`
}

type simulationRequest struct {
	Items   []simulationItem `json:"items"`
	Country string           `json:"country"`
}

// simulatedListPrice asks the checkout for one unit. listPrice comes in cents.
func (v *VTEX) simulatedListPrice(ctx context.Context, sku string) (decimal.NullDecimal, error) {
	sc := v.cfg.SalesChannel
	if sc == "" {
		sc = "1"
	}
	resp, err := v.client.PostJSON(ctx, v.cfg.url("/api/checkout/pub/orderForms/simulation"),
		crawler.Query{}.Add("sc", sc),
		simulationRequest{Items: []simulationItem{{ID: sku, Quantity: 1, Seller: "1"}}, Country: "ARG"}, nil)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("checkout simulation: %w", err)
	}
	cents := positive(resp.Get("items").Index(0).Get("listPrice"))
	if !cents.Valid {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(cents.Decimal.Div(decimal.NewFromInt(100))), nil
}

// positive parses a price node, treating zero and negatives as unknown.
func positive(n *jsontree.Node) decimal.NullDecimal {
	v := pricefmt.Parse(n.Scalar())
	if !v.Valid || !v.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return v
}

func elems(n *jsontree.Node) []*jsontree.Node {
	if n == nil || n.Kind != jsontree.Array {
		return nil
	}
	return n.Items
}
