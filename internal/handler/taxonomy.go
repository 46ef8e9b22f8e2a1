package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/middleware"
	"github.com/abyssal/species-observation/internal/service"
)

// TaxonomyHandler exposes the aggregated taxonomy report. The service
// behind it owns the fan-out to the observation service; this handler
// only forwards the caller's token downstream and maps errors.
type TaxonomyHandler struct {
	Taxonomy *service.TaxonomyService
}

func NewTaxonomyHandler(t *service.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{Taxonomy: t}
}

// Stats builds the full taxonomy report. A failed species list fetch
// is the only hard error; per-species fetch failures are absorbed by
// the service and show up as zero-count entries in the report.
func (h *TaxonomyHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	report, err := h.Taxonomy.GenerateStats(ctx, middleware.Token(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upstream service failure"})
	}
	return c.JSON(http.StatusOK, report)
}
