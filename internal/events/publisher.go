package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jewelcraft/reprice-service/internal/reprice/domain"
	"github.com/jewelcraft/reprice-service/shared/rabbitmq"
)

// Event type names carried in the payload envelope
const (
	TypePriceUpdated = "price.updated"
	TypeRunFinished  = "run.finished"
)

// PriceUpdatedEvent is emitted for each variant whose price was written.
type PriceUpdatedEvent struct {
	Type       string    `json:"type"`
	RunID      string    `json:"runId"`
	ProductID  string    `json:"productId"`
	VariantID  string    `json:"variantId"`
	Options    string    `json:"options"`
	OldPrice   float64   `json:"oldPrice"`
	FinalPrice float64   `json:"finalPrice"`
	OccurredAt time.Time `json:"occurredAt"`
}

// RunFinishedEvent is emitted once when a run ends, normally or on a fatal
// catalog error.
type RunFinishedEvent struct {
	Type       string     `json:"type"`
	RunID      string     `json:"runId"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Failed     int        `json:"failed"`
	StartedAt  *time.Time `json:"startedAt"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Publisher emits repricing events to RabbitMQ so downstream systems
// (search index, cache invalidation) can react to price changes.
// Publishing is best-effort: failures are logged, never propagated.
type Publisher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewPublisher creates a new Publisher instance
func NewPublisher(client *rabbitmq.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

// PriceUpdated publishes a price.updated event for one variant.
func (p *Publisher) PriceUpdated(ctx context.Context, runID string, item domain.ItemResult) {
	p.publish(ctx, PriceUpdatedEvent{
		Type:       TypePriceUpdated,
		RunID:      runID,
		ProductID:  item.ProductID,
		VariantID:  item.VariantID,
		Options:    item.Options,
		OldPrice:   item.OldPrice,
		FinalPrice: item.FinalPrice,
		OccurredAt: time.Now(),
	})
}

// RunFinished publishes a run.finished event with the final counters.
func (p *Publisher) RunFinished(ctx context.Context, state domain.State) {
	p.publish(ctx, RunFinishedEvent{
		Type:       TypeRunFinished,
		RunID:      state.RunID,
		Total:      state.Total,
		Processed:  state.Processed,
		Failed:     state.Failed,
		StartedAt:  state.StartedAt,
		OccurredAt: time.Now(),
	})
}

func (p *Publisher) publish(ctx context.Context, event any) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event",
			slog.Any("error", err),
		)
		return
	}

	if err := p.client.Publish(ctx, body, "application/json"); err != nil {
		p.logger.Warn("Failed to publish event",
			slog.Any("error", err),
		)
	}
}
