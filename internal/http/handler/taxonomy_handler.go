package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/service"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	categoryService *service.CategoryService
	logger          *zap.Logger
}

func NewCategoryHandler(categoryService *service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// List godoc
// @Summary List categories
// @Description All categories with their published note counts
// @Tags Categories
// @Produce json
// @Success 200 {array} domain.CategoryDTO
// @Router /categories [get]
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list categories")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// Get godoc
// @Summary Get category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID or slug"
// @Success 200 {object} domain.CategoryDTO
// @Failure 404 {object} domain.APIError
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.categoryService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get category")
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// Create godoc
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Param request body domain.CreateCategoryRequest true "Category"
// @Success 201 {object} domain.CategoryDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /categories [post]
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := h.categoryService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create category")
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

// Update godoc
// @Summary Update category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID" format(uuid)
// @Param request body domain.UpdateCategoryRequest true "Category"
// @Success 200 {object} domain.CategoryDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "category")
	if !ok {
		return
	}

	var req domain.UpdateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := h.categoryService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update category")
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// Delete godoc
// @Summary Delete category
// @Description Notes in the category become uncategorized
// @Tags Categories
// @Param id path string true "Category ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "category")
	if !ok {
		return
	}

	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type TagHandler struct {
	tagService *service.TagService
	logger     *zap.Logger
}

func NewTagHandler(tagService *service.TagService, logger *zap.Logger) *TagHandler {
	return &TagHandler{
		tagService: tagService,
		logger:     logger,
	}
}

// List godoc
// @Summary List tags
// @Tags Tags
// @Produce json
// @Success 200 {array} domain.TagDTO
// @Router /tags [get]
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tagService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list tags")
		return
	}
	respondJSON(w, http.StatusOK, tags)
}

// Create godoc
// @Summary Create tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param request body domain.CreateTagRequest true "Tag"
// @Success 201 {object} domain.TagDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tags [post]
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTagRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tag, err := h.tagService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create tag")
		return
	}
	respondJSON(w, http.StatusCreated, tag)
}

// Update godoc
// @Summary Rename tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path string true "Tag ID" format(uuid)
// @Param request body domain.UpdateTagRequest true "Tag"
// @Success 200 {object} domain.TagDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tags/{id} [put]
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "tag")
	if !ok {
		return
	}

	var req domain.UpdateTagRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tag, err := h.tagService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update tag")
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// Delete godoc
// @Summary Delete tag
// @Tags Tags
// @Param id path string true "Tag ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tags/{id} [delete]
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "tag")
	if !ok {
		return
	}

	if err := h.tagService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete tag")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
