package reprice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jewelcraft/reprice-service/internal/catalog"
	"github.com/jewelcraft/reprice-service/internal/pricing"
	"github.com/jewelcraft/reprice-service/internal/reprice/domain"
)

// CatalogClient is the slice of the catalog API the runner needs: paginated
// reads plus single-variant price writes.
type CatalogClient interface {
	catalog.Pager
	UpdateVariantPrice(ctx context.Context, productID, variantID string, price float64) error
}

// RunRecorder mirrors the current run's item rows to external storage.
// Best-effort; recorder failures never influence the run.
type RunRecorder interface {
	Reset(ctx context.Context, runID string) error
	Record(ctx context.Context, runID string, seq int, item domain.ItemResult) error
}

// EventSink receives notifications about price updates and run completion.
type EventSink interface {
	PriceUpdated(ctx context.Context, runID string, item domain.ItemResult)
	RunFinished(ctx context.Context, state domain.State)
}

// Config holds runner configuration
type Config struct {
	Logger    *slog.Logger
	Catalog   CatalogClient
	Tracker   *Tracker
	PageSize  int
	PageDelay time.Duration
	Throttle  time.Duration
	RunLog    RunRecorder // optional
	Events    EventSink   // optional
}

// Runner orchestrates the bulk repricing pipeline: paginated fetch, price
// derivation per variant, throttled write-back, outcome tracking.
type Runner struct {
	logger    *slog.Logger
	catalog   CatalogClient
	tracker   *Tracker
	pageSize  int
	pageDelay time.Duration
	throttle  time.Duration
	runLog    RunRecorder
	events    EventSink
}

// NewRunner creates a new runner instance
func NewRunner(cfg *Config) *Runner {
	return &Runner{
		logger:    cfg.Logger,
		catalog:   cfg.Catalog,
		tracker:   cfg.Tracker,
		pageSize:  cfg.PageSize,
		pageDelay: cfg.PageDelay,
		throttle:  cfg.Throttle,
		runLog:    cfg.RunLog,
		events:    cfg.Events,
	}
}

// Status returns a snapshot of the current job state.
func (r *Runner) Status() domain.State {
	return r.tracker.Snapshot()
}

// Start validates the input, claims the single job slot and launches the
// pipeline as a detached background task. It returns the run ID immediately;
// progress is observed through Status. The run outlives the caller's
// context.
func (r *Runner) Start(ctx context.Context, input pricing.Input) (string, error) {
	if err := input.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	runID := uuid.New().String()
	if err := r.tracker.Begin(runID, time.Now()); err != nil {
		return "", err
	}

	r.logger.Info("Repricing job started",
		slog.String("run_id", runID),
		slog.Float64("gold_price_per_gram", input.GoldPricePerGram),
		slog.Int("page_size", r.pageSize),
		slog.Duration("throttle", r.throttle),
	)

	go r.run(context.WithoutCancel(ctx), runID, input)

	return runID, nil
}

// run executes the pipeline to completion or fatal fetch error.
func (r *Runner) run(ctx context.Context, runID string, input pricing.Input) {
	defer func() {
		r.tracker.End()

		state := r.tracker.Snapshot()
		r.logger.Info("Repricing job finished",
			slog.String("run_id", runID),
			slog.Int("total", state.Total),
			slog.Int("processed", state.Processed),
			slog.Int("failed", state.Failed),
		)

		if r.events != nil {
			r.events.RunFinished(ctx, state)
		}
	}()

	if r.runLog != nil {
		if err := r.runLog.Reset(ctx, runID); err != nil {
			r.logger.Warn("Failed to reset run log",
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
		}
	}

	it := catalog.NewIterator(r.catalog, r.pageSize, r.pageDelay)
	seq := 0

	for {
		batch, err := it.Next(ctx)
		if err != nil {
			// Fatal: a truncated scan must not pass for a complete
			// one. Work done so far stays recorded.
			r.logger.Error("Catalog fetch failed, aborting run",
				slog.String("run_id", runID),
				slog.String("error", fmt.Errorf("%w: %v", domain.ErrCatalogFetchFailed, err).Error()),
			)
			return
		}
		if batch == nil {
			return
		}

		total := 0
		for _, product := range batch {
			total += product.VariantCount()
		}
		r.tracker.AddTotal(total)

		for _, product := range batch {
			for _, variant := range product.Variants {
				r.processVariant(ctx, runID, seq, product, variant, input)
				seq++

				// Fixed delay after every variant, attempted or
				// not, to keep the write rate bounded.
				if r.throttle > 0 {
					time.Sleep(r.throttle)
				}
			}
		}
	}
}

// processVariant derives and writes back one variant's price, recording the
// outcome. Per-variant failures never abort the run.
func (r *Runner) processVariant(ctx context.Context, runID string, seq int, product catalog.ProductRecord, variant catalog.VariantRecord, input pricing.Input) {
	breakdown, ok := pricing.Derive(product, variant, input)

	item := domain.ItemResult{
		ProductID:    product.ID,
		ProductTitle: product.Title,
		VariantID:    variant.ID,
		Options:      variant.Title,
		OldPrice:     variant.Price,
		FinalPrice:   breakdown.FinalPrice,
		Status:       domain.ItemStatusUpdating,
		Breakdown:    breakdown,
	}
	idx := r.tracker.Append(item)

	if !ok {
		reason := domain.ErrNonPositivePrice
		if _, err := pricing.ParseVariantTitle(variant.Title); err != nil {
			reason = domain.ErrUnparseableVariant
		}

		resolved := r.tracker.MarkFailed(idx, reason.Error())
		r.logger.Warn("Variant skipped",
			slog.String("run_id", runID),
			slog.String("variant_id", variant.ID),
			slog.String("options", variant.Title),
			slog.String("reason", reason.Error()),
		)
		r.record(ctx, runID, seq, resolved)
		return
	}

	if err := r.catalog.UpdateVariantPrice(ctx, product.ID, variant.ID, breakdown.FinalPrice); err != nil {
		resolved := r.tracker.MarkFailed(idx, err.Error())
		r.logger.Error("Variant price update failed",
			slog.String("run_id", runID),
			slog.String("product_id", product.ID),
			slog.String("variant_id", variant.ID),
			slog.String("error", err.Error()),
		)
		r.record(ctx, runID, seq, resolved)
		return
	}

	resolved := r.tracker.MarkSuccess(idx)
	r.logger.Info("Variant repriced",
		slog.String("run_id", runID),
		slog.String("variant_id", variant.ID),
		slog.String("options", variant.Title),
		slog.Float64("old_price", variant.Price),
		slog.Float64("final_price", breakdown.FinalPrice),
	)

	if r.events != nil {
		r.events.PriceUpdated(ctx, runID, resolved)
	}
	r.record(ctx, runID, seq, resolved)
}

// record mirrors a resolved item to the run log, if one is configured.
func (r *Runner) record(ctx context.Context, runID string, seq int, item domain.ItemResult) {
	if r.runLog == nil {
		return
	}

	if err := r.runLog.Record(ctx, runID, seq, item); err != nil {
		r.logger.Warn("Failed to record item to run log",
			slog.String("run_id", runID),
			slog.String("variant_id", item.VariantID),
			slog.String("error", err.Error()),
		)
	}
}
