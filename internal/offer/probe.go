package offer

import (
	"context"
	"fmt"
	"strings"

	"relevamiento/internal/crawler"
	"relevamiento/internal/jsontree"
)

// CartProbe reveals multi-unit promotions by adding a SKU to a fresh VTEX
// cart at increasing quantities and reading the benefits the backend
// applies. No order is ever placed.
type CartProbe struct {
	Client       *crawler.Client
	BaseURL      string
	SalesChannel string
	// Depth is the highest quantity tried: 3 by default, 4 adds one more tier.
	Depth int
}

type orderItem struct {
	ID       string `json:"id,omitempty"`
	Index    *int   `json:"index,omitempty"`
	Quantity int    `json:"quantity"`
	Seller   string `json:"seller,omitempty"`
}

type orderItems struct {
	OrderItems []orderItem `json:"orderItems"`
}

func (p *CartProbe) depth() int {
	if p.Depth < 3 {
		return 3
	}
	return p.Depth
}

func (p *CartProbe) query() crawler.Query {
	if p.SalesChannel == "" {
		return nil
	}
	return crawler.Query{}.Add("sc", p.SalesChannel)
}

// Run returns the promotion identifiers exposed by the first quantity tier
// that triggers any, or nil when none does.
func (p *CartProbe) Run(ctx context.Context, sku, seller string) ([]string, error) {
	base := strings.TrimRight(p.BaseURL, "/") + "/api/checkout/pub/orderForm"

	form, err := p.Client.PostJSON(ctx, base, p.query(), struct{}{}, nil)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	id := jsontree.FindText(form, "orderFormId")
	if id == "" {
		return nil, fmt.Errorf("create cart: %w: no orderFormId", crawler.ErrMalformed)
	}

	items := base + "/" + id + "/items"
	resp, err := p.Client.PostJSON(ctx, items, p.query(), orderItems{
		OrderItems: []orderItem{{ID: sku, Quantity: 2, Seller: seller}},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("add %d units: %w", 2, err)
	}
	if ids := benefitIdentifiers(resp); len(ids) > 0 {
		return ids, nil
	}

	first := 0
	for qty := 3; qty <= p.depth(); qty++ {
		resp, err = p.Client.PostJSON(ctx, items+"/update", p.query(), orderItems{
			OrderItems: []orderItem{{Index: &first, Quantity: qty, Seller: seller}},
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("update to %d units: %w", qty, err)
		}
		if ids := benefitIdentifiers(resp); len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, nil
}

// benefitIdentifiers reads ratesAndBenefitsData.rateAndBenefitsIdentifiers,
// preferring the human name over the opaque id.
func benefitIdentifiers(orderForm *jsontree.Node) []string {
	list := orderForm.Path("ratesAndBenefitsData", "rateAndBenefitsIdentifiers")
	if list == nil {
		list = jsontree.FindFirst(orderForm, "rateAndBenefitsIdentifiers")
	}
	seen := map[string]bool{}
	var out []string
	for i := 0; i < list.Len(); i++ {
		it := list.Index(i)
		label := it.Text()
		if it != nil && it.Kind == jsontree.Object {
			label = it.Get("name").Text()
			if label == "" {
				label = it.Get("id").Text()
			}
		}
		label = strings.TrimSpace(label)
		if label != "" && !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}
