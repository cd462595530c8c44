package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/service"
	"go.uber.org/zap"
)

type CommentHandler struct {
	commentService *service.CommentService
	logger         *zap.Logger
}

func NewCommentHandler(commentService *service.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// List godoc
// @Summary List comments on a note
// @Description Top-level comments oldest first, each with its replies
// @Tags Comments
// @Produce json
// @Param id path string true "Note ID or slug"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 100)" default(10)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.CommentDTO}
// @Failure 404 {object} domain.APIError
// @Router /notes/{id}/comments [get]
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := h.commentService.List(r.Context(), chi.URLParam(r, "id"), page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list comments")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Comment on a note
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Note ID or slug"
// @Param request body domain.CreateCommentRequest true "Comment"
// @Success 201 {object} domain.CommentDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /notes/{id}/comments [post]
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.commentService.Create(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create comment")
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// Delete godoc
// @Summary Delete a comment
// @Description The author or an owner may delete a comment; its replies go with it
// @Tags Comments
// @Param id path string true "Comment ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "comment")
	if !ok {
		return
	}

	if err := h.commentService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRecent godoc
// @Summary Recent comments
// @Description Newest comments across all notes (owner only)
// @Tags Comments
// @Produce json
// @Param limit query int false "Number of comments (max 100)" default(10)
// @Success 200 {array} domain.CommentDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /comments/recent [get]
func (h *CommentHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	comments, err := h.commentService.ListRecent(r.Context(), limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list recent comments")
		return
	}
	respondJSON(w, http.StatusOK, comments)
}
