package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jewelcraft/reprice-service/internal/api/dto"
	"github.com/jewelcraft/reprice-service/internal/catalog"
	"github.com/jewelcraft/reprice-service/internal/pricing"
	"github.com/jewelcraft/reprice-service/internal/reprice/domain"
)

// StartReprice handles POST /api/v1/reprice
// Validates the pricing inputs and launches the bulk repricing job in the
// background. The response returns as soon as the job is accepted.
func (h *RepriceHandler) StartReprice(c *gin.Context) {
	var req dto.StartRepriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid reprice request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing inputs",
		})
		return
	}

	input := pricing.Input{
		GoldPricePerGram:       *req.GoldPricePerGram,
		MakingChargePerGram:    *req.MakingChargePerGram,
		DiamondTierAPerCarat:   *req.DiamondTierAPerCarat,
		DiamondTierBPerCarat:   *req.DiamondTierBPerCarat,
		GemstonePerCarat:       *req.GemstonePerCarat,
		CertificationSurcharge: *req.CertificationSurcharge,
	}

	runID, err := h.runner.Start(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyRunning):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Job already running",
			})
		case errors.Is(err, domain.ErrInvalidInput):
			h.logger.Error("Invalid pricing input", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		default:
			h.logger.Error("Failed to start repricing job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to start job",
			})
		}
		return
	}

	h.logger.Info("Repricing job accepted",
		slog.String("run_id", runID),
	)

	c.JSON(http.StatusAccepted, dto.StartRepriceResponse{
		Success: true,
		Message: "Price update started",
		RunID:   runID,
	})
}

// GetStatus handles GET /api/v1/reprice/status
// Returns a consistent snapshot of the current job state including the
// per-variant result rows.
func (h *RepriceHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.Status())
}

// ListProducts handles GET /api/v1/products
// Walks the full catalog and returns products with their attributes and
// variants.
func (h *RepriceHandler) ListProducts(c *gin.Context) {
	it := catalog.NewIterator(h.catalog, h.pageSize, 0)

	products := make([]dto.ProductDTO, 0)
	for {
		batch, err := it.Next(c.Request.Context())
		if err != nil {
			h.logger.Error("Failed to fetch products", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to fetch products",
			})
			return
		}
		if batch == nil {
			break
		}

		for _, product := range batch {
			row := dto.ProductDTO{
				ProductID:    product.ID,
				ProductTitle: product.Title,
				Attributes:   product.Attributes,
				Variants:     make([]dto.VariantDTO, 0, len(product.Variants)),
			}
			for _, v := range product.Variants {
				row.Variants = append(row.Variants, dto.VariantDTO{
					VariantID:    v.ID,
					VariantTitle: v.Title,
					Price:        v.Price,
				})
			}
			products = append(products, row)
		}
	}

	c.JSON(http.StatusOK, dto.ListProductsResponse{Products: products})
}

// Health handles GET /health
// Verifies connectivity to the catalog API.
func (h *RepriceHandler) Health(c *gin.Context) {
	shopName, err := h.catalog.Ping(c.Request.Context())
	if err != nil {
		h.logger.Error("Catalog health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "reprice-service",
		"shop":    shopName,
	})
}
