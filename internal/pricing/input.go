package pricing

import (
	"fmt"
	"math"
)

// Input is the set of raw-material rates a repricing run is computed from.
// Immutable for the duration of a run.
type Input struct {
	GoldPricePerGram       float64
	MakingChargePerGram    float64
	DiamondTierAPerCarat   float64
	DiamondTierBPerCarat   float64
	GemstonePerCarat       float64
	CertificationSurcharge float64
}

// Validate checks that all rates are usable. The gold price must be strictly
// positive; the remaining rates may be zero but not negative.
func (in Input) Validate() error {
	fields := []struct {
		name       string
		value      float64
		requirePos bool
	}{
		{"goldPricePerGram", in.GoldPricePerGram, true},
		{"makingChargePerGram", in.MakingChargePerGram, false},
		{"diamondPricePerCaratTierA", in.DiamondTierAPerCarat, false},
		{"diamondPricePerCaratTierB", in.DiamondTierBPerCarat, false},
		{"gemstonePricePerCarat", in.GemstonePerCarat, false},
		{"certificationSurcharge", in.CertificationSurcharge, false},
	}

	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be a finite number", f.name)
		}
		if f.requirePos && f.value <= 0 {
			return fmt.Errorf("%s must be greater than zero", f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
	}

	return nil
}
