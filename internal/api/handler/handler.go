package handler

import (
	"context"
	"log/slog"

	"github.com/jewelcraft/reprice-service/internal/catalog"
	"github.com/jewelcraft/reprice-service/internal/pricing"
	"github.com/jewelcraft/reprice-service/internal/reprice/domain"
)

// JobRunner is the job control surface the handlers drive.
type JobRunner interface {
	Start(ctx context.Context, input pricing.Input) (string, error)
	Status() domain.State
}

// CatalogReader is the read side of the catalog used by the listing and
// health endpoints.
type CatalogReader interface {
	catalog.Pager
	Ping(ctx context.Context) (string, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Runner   JobRunner
	Catalog  CatalogReader
	PageSize int
}

// RepriceHandler handles repricing HTTP requests
type RepriceHandler struct {
	logger   *slog.Logger
	runner   JobRunner
	catalog  CatalogReader
	pageSize int
}

// NewRepriceHandler creates a new RepriceHandler instance
func NewRepriceHandler(deps *Dependencies) *RepriceHandler {
	return &RepriceHandler{
		logger:   deps.Logger,
		runner:   deps.Runner,
		catalog:  deps.Catalog,
		pageSize: deps.PageSize,
	}
}
