package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/service"
	"go.uber.org/zap"
)

// NoteHandler handles HTTP requests for notes
type NoteHandler struct {
	noteService *service.NoteService
	logger      *zap.Logger
}

func NewNoteHandler(noteService *service.NoteService, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		logger:      logger,
	}
}

// List godoc
// @Summary List notes
// @Description Paginated notes. Anonymous callers and visitors only see published notes.
// @Tags Notes
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 100)" default(10)
// @Param category query string false "Category slug"
// @Param tag query string false "Tag slug"
// @Param q query string false "Search in title, summary and content"
// @Param status query string false "Status filter (owner only)" Enums(draft, published)
// @Param sort query string false "Sort order" Enums(newest, oldest, popular, views) default(newest)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.NoteSummaryDTO}
// @Failure 400 {object} domain.APIError
// @Router /notes [get]
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pageParams(r)

	filter := domain.NoteFilter{
		Page:     page,
		PageSize: pageSize,
		Category: strings.TrimSpace(q.Get("category")),
		Tag:      q.Get("tag"),
		Search:   q.Get("q"),
		Status:   domain.NoteStatus(strings.ToLower(q.Get("status"))),
		Sort:     domain.NoteSort(strings.ToLower(q.Get("sort"))),
	}

	result, err := h.noteService.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list notes")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Archive godoc
// @Summary Note archive
// @Description Months with published notes, newest first
// @Tags Notes
// @Produce json
// @Success 200 {array} domain.ArchiveEntryDTO
// @Router /notes/archive [get]
func (h *NoteHandler) Archive(w http.ResponseWriter, r *http.Request) {
	entries, err := h.noteService.Archive(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build archive")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Get godoc
// @Summary Get note
// @Description Get a note by ID or slug. Reading a note counts a view unless the caller is an owner.
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID or slug"
// @Success 200 {object} domain.NoteDTO
// @Failure 404 {object} domain.APIError
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.noteService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// Create godoc
// @Summary Create note
// @Tags Notes
// @Accept json
// @Produce json
// @Param request body domain.CreateNoteRequest true "Note"
// @Success 201 {object} domain.NoteDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /notes [post]
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.noteService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create note")
		return
	}

	w.Header().Set("Location", "/api/v1/notes/"+note.Slug)
	respondJSON(w, http.StatusCreated, note)
}

// Update godoc
// @Summary Update note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID" format(uuid)
// @Param request body domain.UpdateNoteRequest true "Note"
// @Success 200 {object} domain.NoteDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "note")
	if !ok {
		return
	}

	var req domain.UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.noteService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// Delete godoc
// @Summary Delete note
// @Description Soft-deletes the note and removes its comments, likes and attachments
// @Tags Notes
// @Param id path string true "Note ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "note")
	if !ok {
		return
	}

	if err := h.noteService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Publish godoc
// @Summary Publish note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID" format(uuid)
// @Success 200 {object} domain.NoteDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /notes/{id}/publish [post]
func (h *NoteHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "note")
	if !ok {
		return
	}

	note, err := h.noteService.Publish(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to publish note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// Unpublish godoc
// @Summary Unpublish note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID" format(uuid)
// @Success 200 {object} domain.NoteDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /notes/{id}/unpublish [post]
func (h *NoteHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "note")
	if !ok {
		return
	}

	note, err := h.noteService.Unpublish(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to unpublish note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}
