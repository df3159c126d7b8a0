package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jewelcraft/reprice-service/internal/reprice/domain"
	"github.com/jewelcraft/reprice-service/shared/postgresql"
)

// Store keeps the item rows of the current run in PostgreSQL for ops
// tooling. Only the live run is kept: Reset wipes the table when a new run
// starts, so no history accumulates.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(pg *postgresql.Client, logger *slog.Logger) *Store {
	return &Store{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// Reset clears any rows from the previous run.
func (s *Store) Reset(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reprice_run_items`); err != nil {
		return fmt.Errorf("failed to reset run log: %w", err)
	}

	s.logger.Info("Run log reset",
		slog.String("run_id", runID),
	)

	return nil
}

// Record inserts one resolved item row for the current run.
func (s *Store) Record(ctx context.Context, runID string, seq int, item domain.ItemResult) error {
	breakdown, err := json.Marshal(item.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	query := `
		INSERT INTO reprice_run_items (
			run_id, seq, product_id, product_title, variant_id,
			options, old_price, final_price, status, error_message,
			breakdown, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		runID,
		seq,
		item.ProductID,
		item.ProductTitle,
		item.VariantID,
		item.Options,
		item.OldPrice,
		item.FinalPrice,
		item.Status,
		item.Error,
		breakdown,
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to record run item: %w", err)
	}

	return nil
}
