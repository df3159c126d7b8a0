package catalog

import (
	"math"
	"strconv"
	"strings"
)

// Product attribute keys carried as product-level metafields in the catalog.
// Each weight is optional; absent or sentinel values read as zero.
const (
	AttrMetalWeight9kt  = "9kt_metal_weight"
	AttrMetalWeight14kt = "14kt_metal_weight"
	AttrMetalWeight18kt = "18kt_metal_weight"
	AttrDiamondWeight   = "diamond_total_weight"
	AttrGemstoneWeight  = "gemstone_total_weight"
)

// VariantRecord is a single sellable variant of a product. Title encodes
// karat, metal color and diamond quality grade as "<karat>KT-<color>/<grade>".
type VariantRecord struct {
	ID    string
	Title string
	Price float64
}

// ProductRecord is a product with its variants and product-level attributes.
type ProductRecord struct {
	ID         string
	Title      string
	Attributes map[string]string
	Variants   []VariantRecord
}

// NumericAttr returns the named attribute parsed as a number. Missing keys,
// the "-" placeholder the merchandising team uses for empty cells, and
// unparseable values all read as zero.
func (p ProductRecord) NumericAttr(key string) float64 {
	raw, ok := p.Attributes[key]
	if !ok {
		return 0
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return 0
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}

// VariantCount returns the number of variants on the product.
func (p ProductRecord) VariantCount() int {
	return len(p.Variants)
}

// Page is one batch of products from the paginated catalog query.
type Page struct {
	Products   []ProductRecord
	NextCursor string
	HasMore    bool
}
