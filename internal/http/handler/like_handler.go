package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkwell-notes/notes-api/internal/http/middleware"
	"github.com/inkwell-notes/notes-api/internal/service"
	"go.uber.org/zap"
)

// LikeHandler serves anonymous likes, keyed by client address
type LikeHandler struct {
	likeService *service.LikeService
	logger      *zap.Logger
}

func NewLikeHandler(likeService *service.LikeService, logger *zap.Logger) *LikeHandler {
	return &LikeHandler{
		likeService: likeService,
		logger:      logger,
	}
}

// Status godoc
// @Summary Like status
// @Description Whether the caller's address has liked the note, and the like count
// @Tags Likes
// @Produce json
// @Param id path string true "Note ID or slug"
// @Success 200 {object} domain.LikeStatusDTO
// @Failure 404 {object} domain.APIError
// @Router /notes/{id}/like [get]
func (h *LikeHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.likeService.Status(r.Context(), chi.URLParam(r, "id"), middleware.ClientIP(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get like status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Like godoc
// @Summary Like a note
// @Tags Likes
// @Produce json
// @Param id path string true "Note ID or slug"
// @Success 201 {object} domain.LikeStatusDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Already liked from this address"
// @Router /notes/{id}/like [post]
func (h *LikeHandler) Like(w http.ResponseWriter, r *http.Request) {
	status, err := h.likeService.Like(r.Context(), chi.URLParam(r, "id"), middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to like note")
		return
	}
	respondJSON(w, http.StatusCreated, status)
}

// Unlike godoc
// @Summary Remove a like
// @Tags Likes
// @Produce json
// @Param id path string true "Note ID or slug"
// @Success 200 {object} domain.LikeStatusDTO
// @Failure 404 {object} domain.APIError
// @Router /notes/{id}/like [delete]
func (h *LikeHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	status, err := h.likeService.Unlike(r.Context(), chi.URLParam(r, "id"), middleware.ClientIP(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to remove like")
		return
	}
	respondJSON(w, http.StatusOK, status)
}
