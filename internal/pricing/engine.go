package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jewelcraft/reprice-service/internal/catalog"
)

// Karat purity is expressed out of 24 parts.
const pureKarat = 24

// Recognized diamond quality grade tiers. Any other grade string prices the
// diamond content at zero; the merchandising data is ambiguous on whether
// that is intentional, so the behavior is kept as-is.
const (
	GradeTierA = "HI SI"
	GradeTierB = "GH I1-I2"
)

// Options are the two dimensions packed into a variant title,
// "<karat>KT-<color>/<grade>".
type Options struct {
	Karat int
	Color string
	Grade string
}

// ParseVariantTitle splits a variant title into its karat, metal color and
// quality grade. Titles that do not match the expected shape are rejected.
func ParseVariantTitle(title string) (Options, error) {
	segments := strings.Split(title, "/")
	if len(segments) != 2 {
		return Options{}, fmt.Errorf("variant title %q: expected exactly one %q separator", title, "/")
	}

	metal := strings.TrimSpace(segments[0])
	grade := strings.TrimSpace(segments[1])

	metalParts := strings.Split(metal, "-")
	if len(metalParts) != 2 {
		return Options{}, fmt.Errorf("variant title %q: expected exactly one %q separator in metal segment", title, "-")
	}

	karat, err := strconv.Atoi(strings.TrimSuffix(metalParts[0], "KT"))
	if err != nil {
		return Options{}, fmt.Errorf("variant title %q: unparseable karat: %w", title, err)
	}

	return Options{
		Karat: karat,
		Color: metalParts[1],
		Grade: grade,
	}, nil
}

// Breakdown is the computed cost composition of one variant's price.
type Breakdown struct {
	MetalCost     float64 `json:"metalCost"`
	DiamondCost   float64 `json:"diamondCost"`
	StoneCost     float64 `json:"stoneCost"`
	MakingCharge  float64 `json:"makingCharge"`
	Certification float64 `json:"certification"`
	FinalPrice    float64 `json:"finalPrice"`
}

// metalWeight selects the product weight attribute matching the variant's
// karat. Unrecognized karats carry no metal weight; the variant prices
// without metal cost rather than failing.
func metalWeight(product catalog.ProductRecord, karat int) float64 {
	switch karat {
	case 9:
		return product.NumericAttr(catalog.AttrMetalWeight9kt)
	case 14:
		return product.NumericAttr(catalog.AttrMetalWeight14kt)
	case 18:
		return product.NumericAttr(catalog.AttrMetalWeight18kt)
	default:
		return 0
	}
}

// Derive computes the price breakdown for one variant from its product's
// attributes and the run's pricing input. It is pure: no I/O, no shared
// state. ok reports whether the result may be submitted as a price update;
// an unparseable title or a non-positive final price yields ok=false.
func Derive(product catalog.ProductRecord, variant catalog.VariantRecord, in Input) (Breakdown, bool) {
	opts, err := ParseVariantTitle(variant.Title)
	if err != nil {
		return Breakdown{}, false
	}

	var b Breakdown

	weight := metalWeight(product, opts.Karat)
	b.MetalCost = weight * in.GoldPricePerGram * float64(opts.Karat) / pureKarat
	b.MakingCharge = in.MakingChargePerGram * weight

	b.StoneCost = product.NumericAttr(catalog.AttrGemstoneWeight) * in.GemstonePerCarat

	if diamondWeight := product.NumericAttr(catalog.AttrDiamondWeight); diamondWeight > 0 {
		switch opts.Grade {
		case GradeTierA:
			b.DiamondCost = diamondWeight * in.DiamondTierAPerCarat
		case GradeTierB:
			b.DiamondCost = diamondWeight * in.DiamondTierBPerCarat
		}
	}

	b.Certification = in.CertificationSurcharge

	// Rounded to whole currency units, matching what the catalog stores.
	b.FinalPrice = math.Round(b.MetalCost + b.DiamondCost + b.StoneCost + b.MakingCharge + b.Certification)

	if math.IsNaN(b.FinalPrice) || math.IsInf(b.FinalPrice, 0) || b.FinalPrice <= 0 {
		return b, false
	}

	return b, true
}
