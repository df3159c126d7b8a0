package domain

import (
	"time"

	"github.com/jewelcraft/reprice-service/internal/pricing"
)

// Item status values as exposed on the status endpoint
const (
	ItemStatusUpdating = "updating"
	ItemStatusSuccess  = "success"
	ItemStatusFailed   = "failed"
)

// ItemResult is the recorded outcome for one variant within a run. Appended
// while the variant is being processed, then resolved to success or failed.
type ItemResult struct {
	ProductID    string            `json:"productId"`
	ProductTitle string            `json:"productTitle"`
	VariantID    string            `json:"variantId"`
	Options      string            `json:"options"`
	OldPrice     float64           `json:"oldPrice"`
	FinalPrice   float64           `json:"finalPrice"`
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
	Breakdown    pricing.Breakdown `json:"breakdown"`
}

// State is the progress of the single repricing job. One run may be active
// at a time; counters and items reset when a new run starts.
type State struct {
	RunID     string       `json:"runId,omitempty"`
	Running   bool         `json:"running"`
	Total     int          `json:"total"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	StartedAt *time.Time   `json:"startedAt"`
	Items     []ItemResult `json:"items"`
}
