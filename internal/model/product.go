package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RetailerID identifies one supermarket chain. Values are lowercase slugs
// so they can be used as metric labels and map keys.
type RetailerID string

const (
	Carrefour     RetailerID = "carrefour"
	Dia           RetailerID = "dia"
	ChangoMas     RetailerID = "changomas"
	Coto          RetailerID = "coto"
	Jumbo         RetailerID = "jumbo"
	Vea           RetailerID = "vea"
	Cooperativa   RetailerID = "cooperativa"
	HiperLibertad RetailerID = "hiperlibertad"
)

// AllRetailers is the column order used by every comparison table.
var AllRetailers = []RetailerID{Carrefour, Dia, ChangoMas, Coto, Jumbo, Vea, Cooperativa, HiperLibertad}

var displayNames = map[RetailerID]string{
	Carrefour:     "Carrefour",
	Dia:           "Día",
	ChangoMas:     "ChangoMas",
	Coto:          "Coto",
	Jumbo:         "Jumbo",
	Vea:           "Vea",
	Cooperativa:   "Cooperativa",
	HiperLibertad: "Hiperlibertad",
}

// DisplayName is the column header used in exported tables.
func (r RetailerID) DisplayName() string {
	if n, ok := displayNames[r]; ok {
		return n
	}
	return string(r)
}

// ParseRetailerID accepts either the slug or the display name, in any case
// ("coto", "Día", "DÍA").
func ParseRetailerID(s string) (RetailerID, bool) {
	s = strings.TrimSpace(s)
	for _, id := range AllRetailers {
		if strings.EqualFold(s, string(id)) || strings.EqualFold(s, id.DisplayName()) {
			return id, true
		}
	}
	return "", false
}

// ProductRef is one entry of the external catalog. It is not mutated during a scan.
type ProductRef struct {
	Name           string                `json:"name"`
	EAN            string                `json:"ean"`
	Codes          map[RetailerID]string `json:"codes,omitempty"` // Día skuId, Cooperativa cod_interno, ChangoMás RefId
	Category       string                `json:"category"`
	Brand          string                `json:"brand"`
	SuggestedPrice decimal.NullDecimal   `json:"suggested_price"`
}

// Code returns the retailer-specific internal code, if the catalog has one.
func (p ProductRef) Code(r RetailerID) string {
	if p.Codes == nil {
		return ""
	}
	return p.Codes[r]
}
