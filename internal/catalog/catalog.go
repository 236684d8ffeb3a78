// Package catalog loads the products to scan. The file format is the one
// the commercial team maintains: an object keyed by product name whose
// values carry the EAN, per-retailer codes, category, brand and suggested
// price ("psp").
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"relevamiento/internal/jsontree"
	"relevamiento/internal/model"
	"relevamiento/internal/pricefmt"
)

// Provider supplies the scan's products in display order.
type Provider interface {
	Products(ctx context.Context) ([]model.ProductRef, error)
}

// File reads a JSON catalog from disk.
type File struct {
	Path string
}

func (f File) Products(_ context.Context) ([]model.ProductRef, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	products, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", f.Path, err)
	}
	return products, nil
}

// Static is an in-memory catalog.
type Static []model.ProductRef

func (s Static) Products(context.Context) ([]model.ProductRef, error) {
	return s, nil
}

var ErrFormat = errors.New("catalog must be an object keyed by name or an array of products")

// Parse accepts either {"<name>": {...}, ...} or [{"nombre": ..., ...}].
// Document order is kept.
func Parse(data []byte) ([]model.ProductRef, error) {
	root, err := jsontree.Parse(data)
	if err != nil {
		return nil, err
	}
	var out []model.ProductRef
	switch root.Kind {
	case jsontree.Object:
		for _, f := range root.Fields {
			out = append(out, decode(f.Key, f.Value))
		}
	case jsontree.Array:
		for i, it := range root.Items {
			if it.Kind != jsontree.Object {
				return nil, fmt.Errorf("product %d: %w", i, ErrFormat)
			}
			out = append(out, decode("", it))
		}
	default:
		return nil, ErrFormat
	}
	return out, nil
}

// codeAliases maps legacy column names to retailers. Any other
// "cod_<retailer>" key is resolved by retailer id.
var codeAliases = map[string]model.RetailerID{
	"cod_coop":      model.Cooperativa,
	"cod_coope":     model.Cooperativa,
	"cod_maso":      model.ChangoMas,
	"cod_masonline": model.ChangoMas,
	"refid":         model.ChangoMas,
	"cod_libertad":  model.HiperLibertad,
}

func decode(name string, meta *jsontree.Node) model.ProductRef {
	p := model.ProductRef{Name: strings.TrimSpace(name), Codes: map[model.RetailerID]string{}}
	if meta == nil || meta.Kind != jsontree.Object {
		return p
	}
	for _, f := range meta.Fields {
		val := strings.TrimSpace(f.Value.Text())
		switch key := foldKey(f.Key); key {
		case "nombre", "name":
			if p.Name == "" {
				p.Name = val
			}
		case "ean":
			p.EAN = val
		case "categoria", "category":
			p.Category = val
		case "marca", "brand":
			p.Brand = val
		case "psp", "precio_sugerido", "suggested_price":
			p.SuggestedPrice = pricefmt.Parse(f.Value.Scalar())
		default:
			if r, ok := retailerForKey(key); ok && val != "" {
				p.Codes[r] = val
			}
		}
	}
	return p
}

func retailerForKey(key string) (model.RetailerID, bool) {
	if r, ok := codeAliases[key]; ok {
		return r, true
	}
	if rest, ok := strings.CutPrefix(key, "cod_"); ok {
		return model.ParseRetailerID(rest)
	}
	return "", false
}

// foldKey lower-cases and strips accents, so "Categoría" reads as "categoria".
func foldKey(k string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, k)
	if err != nil {
		s = k
	}
	return strings.ToLower(strings.TrimSpace(s))
}
