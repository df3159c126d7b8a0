package dto

// StartRepriceRequest carries the pricing inputs for a bulk repricing run.
// Field names match what the storefront admin panel has always sent. All
// fields are mandatory; pointers distinguish omitted from zero.
type StartRepriceRequest struct {
	GoldPricePerGram       *float64 `json:"newGoldPrice" binding:"required"`
	MakingChargePerGram    *float64 `json:"mkcost" binding:"required"`
	DiamondTierAPerCarat   *float64 `json:"diaq1" binding:"required"`
	DiamondTierBPerCarat   *float64 `json:"diaq2" binding:"required"`
	GemstonePerCarat       *float64 `json:"stonePrice" binding:"required"`
	CertificationSurcharge *float64 `json:"crtfConst" binding:"required"`
}

// StartRepriceResponse acknowledges an accepted run.
type StartRepriceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	RunID   string `json:"runId"`
}

// VariantDTO is one variant row in the product listing.
type VariantDTO struct {
	VariantID    string  `json:"variant_id"`
	VariantTitle string  `json:"variant_title"`
	Price        float64 `json:"price"`
}

// ProductDTO is one product row in the product listing.
type ProductDTO struct {
	ProductID    string            `json:"product_id"`
	ProductTitle string            `json:"product_title"`
	Attributes   map[string]string `json:"product_attributes"`
	Variants     []VariantDTO      `json:"variants"`
}

// ListProductsResponse is the full catalog listing.
type ListProductsResponse struct {
	Products []ProductDTO `json:"products"`
}
