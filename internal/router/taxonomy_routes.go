package router

import (
	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/handler"
	"github.com/abyssal/species-observation/internal/middleware"
)

// RegisterTaxonomy wires the aggregator's single report endpoint. The
// report is expensive (one upstream call per species), so the caching
// middleware matters here more than anywhere else.
func RegisterTaxonomy(e *echo.Echo, t *handler.TaxonomyHandler, jwtSecret string, cacheStats echo.MiddlewareFunc) {
	e.GET("/health", handler.Health("taxonomy-service"))

	api := e.Group("/api", middleware.JWTAuth(jwtSecret))
	if cacheStats != nil {
		api.GET("/taxonomy/stats", t.Stats, cacheStats)
	} else {
		api.GET("/taxonomy/stats", t.Stats)
	}
}
