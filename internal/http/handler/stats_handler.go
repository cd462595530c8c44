package handler

import (
	"net/http"

	"github.com/inkwell-notes/notes-api/internal/service"
	"go.uber.org/zap"
)

type StatsHandler struct {
	statsService *service.StatsService
	logger       *zap.Logger
}

func NewStatsHandler(statsService *service.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		logger:       logger,
	}
}

// Get godoc
// @Summary Site statistics
// @Description Totals, top notes and recent comments (owner only)
// @Tags Stats
// @Produce json
// @Success 200 {object} domain.StatsDTO
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stats [get]
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get statistics")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
