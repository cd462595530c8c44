package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/inkwell-notes/notes-api/internal/service"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for boundaries and part headers on top of the file itself
const multipartOverhead = 1 << 20

type AttachmentHandler struct {
	attachmentService *service.AttachmentService
	logger            *zap.Logger
}

func NewAttachmentHandler(attachmentService *service.AttachmentService, logger *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		logger:            logger,
	}
}

// Upload godoc
// @Summary Upload an attachment
// @Description Attach an image, PDF or plain text file to a note
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Note ID or slug"
// @Param file formData file true "File to upload"
// @Success 201 {object} domain.AttachmentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /notes/{id}/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.attachmentService.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "File exceeds the maximum upload size of "+strconv.FormatInt(maxBytes, 10)+" bytes")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	attachment, err := h.attachmentService.Upload(r.Context(), chi.URLParam(r, "id"), header.Filename, file)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to upload attachment")
		return
	}

	respondJSON(w, http.StatusCreated, attachment)
}

// List godoc
// @Summary List attachments
// @Tags Attachments
// @Produce json
// @Param id path string true "Note ID or slug"
// @Success 200 {array} domain.AttachmentDTO
// @Failure 404 {object} domain.APIError
// @Router /notes/{id}/attachments [get]
func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	attachments, err := h.attachmentService.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list attachments")
		return
	}
	respondJSON(w, http.StatusOK, attachments)
}

// Download godoc
// @Summary Download an attachment
// @Tags Attachments
// @Produce octet-stream
// @Param id path string true "Attachment ID" format(uuid)
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Router /attachments/{id} [get]
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "attachment")
	if !ok {
		return
	}

	attachment, body, err := h.attachmentService.Open(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to download attachment")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachment.FileName}))
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.Size, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("attachment download interrupted",
			zap.String("attachment_id", id.String()),
			zap.Error(err))
	}
}

// Delete godoc
// @Summary Delete an attachment
// @Tags Attachments
// @Param id path string true "Attachment ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /attachments/{id} [delete]
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "attachment")
	if !ok {
		return
	}

	if err := h.attachmentService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete attachment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
