package retailer

import (
	"fmt"

	"relevamiento/internal/model"
	"relevamiento/internal/offer"
)

// New builds the adapter for id.
func New(id model.RetailerID, cfg ClientConfig, opts ...Option) (Adapter, error) {
	switch id {
	case model.Carrefour:
		return NewCarrefour(cfg, opts...), nil
	case model.Dia:
		return NewDia(cfg, opts...), nil
	case model.ChangoMas:
		return NewChangoMas(cfg, opts...), nil
	case model.Coto:
		return NewCoto(cfg, opts...), nil
	case model.Jumbo:
		return NewJumbo(cfg, opts...), nil
	case model.Vea:
		return NewVea(cfg, opts...), nil
	case model.Cooperativa:
		return NewCooperativa(cfg, opts...), nil
	case model.HiperLibertad:
		return NewHiperLibertad(cfg, opts...), nil
	}
	return nil, fmt.Errorf("unknown retailer %q", id)
}

// Probed reports whether the retailer hides multi-unit promotions behind
// the cart and needs a CartProbe.
func Probed(id model.RetailerID) bool {
	return id == model.ChangoMas || id == model.Jumbo
}

// NewProbe builds a cart probe that shares the retailer's headers, cookie
// and sales channel.
func NewProbe(cfg ClientConfig, depth int) *offer.CartProbe {
	return &offer.CartProbe{
		Client:       cfg.client(),
		BaseURL:      cfg.BaseURL,
		SalesChannel: cfg.SalesChannel,
		Depth:        depth,
	}
}
