// Package retailer holds one price adapter per supermarket chain. Every
// adapter turns a catalog product into a model.PriceQuote and never
// returns an error: failures are carried in the quote status.
package retailer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"relevamiento/internal/crawler"
	"relevamiento/internal/model"
	"relevamiento/internal/offer"
)

// Adapter quotes one product at one retailer.
type Adapter interface {
	ID() model.RetailerID
	Quote(ctx context.Context, p model.ProductRef) model.PriceQuote
}

// ClientConfig is everything an adapter needs to talk to its retailer.
// It is passed at construction; there is no shared session.
type ClientConfig struct {
	BaseURL      string
	Headers      http.Header
	SalesChannel string
	Segment      string // vtex_segment cookie value
	Branch       string // Coto idSucursal
	HTTP         *http.Client
}

func (c ClientConfig) client() *crawler.Client {
	h := http.Header{}
	for k, vs := range c.Headers {
		h[k] = append([]string(nil), vs...)
	}
	if c.Segment != "" {
		cookie := "vtex_segment=" + c.Segment
		if prev := h.Get("Cookie"); prev != "" {
			cookie = prev + "; " + cookie
		}
		h.Set("Cookie", cookie)
	}
	return crawler.NewClient(c.HTTP, h)
}

func (c ClientConfig) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

// Option customizes an adapter at construction.
type Option func(*base)

// WithLogger sets the adapter logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *base) { b.log = l }
}

// WithDetector sets the offer detector. Retailers whose detector carries a
// CartProbe will probe the cart when no declarative discount is present.
func WithDetector(d *offer.Detector) Option {
	return func(b *base) { b.offers = d }
}

type base struct {
	id     model.RetailerID
	cfg    ClientConfig
	client *crawler.Client
	log    zerolog.Logger
	offers *offer.Detector
}

func newBase(id model.RetailerID, cfg ClientConfig, opts []Option) base {
	b := base{id: id, cfg: cfg, client: cfg.client(), log: zerolog.Nop()}
	for _, o := range opts {
		o(&b)
	}
	b.log = b.log.With().Str("retailer", string(id)).Logger()
	return b
}

func (b *base) ID() model.RetailerID { return b.id }

func (b *base) fail(p model.ProductRef, err error) model.PriceQuote {
	return model.Failed(b.id, p, Classify(err), err)
}

func (b *base) notFound(p model.ProductRef, reason string) model.PriceQuote {
	return model.Failed(b.id, p, model.StatusNotFound, errors.New(reason))
}

// Classify maps an adapter error onto the quote status taxonomy.
func Classify(err error) model.Status {
	if err == nil {
		return model.StatusOk
	}
	var se *crawler.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusForbidden, http.StatusTooManyRequests:
			return model.StatusRateLimited
		}
		return model.StatusNetworkError
	}
	if errors.Is(err, crawler.ErrMalformed) {
		return model.StatusMalformedResponse
	}
	return model.StatusNetworkError
}

// IsMissingCode reports whether a catalog code means "known not to exist at
// this retailer": empty, or any accent/case/spacing variant of
// "NO ENCONTRADO" or "NO".
func IsMissingCode(code string) bool {
	var sb strings.Builder
	for _, r := range norm.NFD.String(code) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsSpace(r), r == '_', r == '-', r == '.':
		default:
			sb.WriteRune(unicode.ToUpper(r))
		}
	}
	s := sb.String()
	return s == "" || s == "NOENCONTRADO" || s == "NO"
}
