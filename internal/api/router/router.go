package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jewelcraft/reprice-service/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	repriceHandler := handler.NewRepriceHandler(deps)

	// Health check endpoint
	r.GET("/health", repriceHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/reprice - Start the bulk repricing job
		v1.POST("/reprice", repriceHandler.StartReprice)

		// GET /api/v1/reprice/status - Current job progress
		v1.GET("/reprice/status", repriceHandler.GetStatus)

		// GET /api/v1/products - Full catalog listing
		v1.GET("/products", repriceHandler.ListProducts)
	}

	return r
}
