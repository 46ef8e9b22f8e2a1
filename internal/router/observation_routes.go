package router

import (
	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/handler"
	"github.com/abyssal/species-observation/internal/middleware"
)

// RegisterObservation wires the species registry, the observation
// ledger and the moderation surface. Everything except /health
// requires a valid token; validation and rejection require EXPERT or
// ADMIN, soft deletion and the user audit trail are ADMIN only.
//
// cacheList is the response-cache middleware for the species list,
// built in main when Redis is reachable; nil disables caching.
func RegisterObservation(e *echo.Echo, s *handler.SpeciesHandler, o *handler.ObservationHandler, m *handler.ModerationHandler, jwtSecret string, cacheList echo.MiddlewareFunc) {
	e.GET("/health", handler.Health("observation-service"))

	api := e.Group("/api", middleware.JWTAuth(jwtSecret))

	// ---- Species registry ----
	api.POST("/species", s.Create)
	if cacheList != nil {
		api.GET("/species", s.List, cacheList)
	} else {
		api.GET("/species", s.List)
	}
	api.GET("/species/:id", s.Get)
	api.GET("/species/:id/observations", s.ListObservations)

	// ---- Observation ledger ----
	api.POST("/observations", o.Create)

	expert := api.Group("", middleware.RequireRole("EXPERT", "ADMIN"))
	expert.POST("/observations/:id/validate", o.Validate)
	expert.POST("/observations/:id/reject", o.Reject)
	expert.GET("/expert/species/:id/history", m.SpeciesHistory)

	// ---- Moderation and audit trail ----
	moderation := api.Group("", middleware.RequireRole("ADMIN"))
	moderation.DELETE("/observations/:id", m.DeleteObservation)
	moderation.POST("/observations/:id/restore", m.RestoreObservation)

	admin := api.Group("/admin", middleware.RequireRole("ADMIN"))
	admin.DELETE("/species/:id", m.DeleteSpecies)
	admin.POST("/species/:id/restore", m.RestoreSpecies)
	admin.GET("/users/:id/history", m.UserHistory)
}
