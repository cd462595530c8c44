package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/mapper"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"github.com/inkwell-notes/notes-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sniffLength         = 512
	maxFileNameLength   = 255
	defaultUploadLimit  = 10 << 20
	attachmentKeyPrefix = "notes"
)

// AttachmentService stores files uploaded to notes
type AttachmentService struct {
	attachments *repository.AttachmentRepository
	notes       *repository.NoteRepository
	storage     storage.Storage
	maxBytes    int64
	cache       CacheInvalidator
	logger      *zap.Logger
}

func NewAttachmentService(
	attachments *repository.AttachmentRepository,
	notes *repository.NoteRepository,
	store storage.Storage,
	maxBytes int64,
	cache CacheInvalidator,
	logger *zap.Logger,
) *AttachmentService {
	if maxBytes <= 0 {
		maxBytes = defaultUploadLimit
	}
	return &AttachmentService{
		attachments: attachments,
		notes:       notes,
		storage:     store,
		maxBytes:    maxBytes,
		cache:       cache,
		logger:      logger,
	}
}

// MaxBytes is the largest accepted upload
func (s *AttachmentService) MaxBytes() int64 {
	return s.maxBytes
}

// allowedContentType accepts images, PDF and plain text
func allowedContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return true
	case mediaType == "application/pdf", mediaType == "text/plain":
		return true
	}
	return false
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	if r := []rune(name); len(r) > maxFileNameLength {
		name = string(r[:maxFileNameLength])
	}
	return name
}

// Upload stores a file on a note. The content type is sniffed from the body;
// the client's declared type is ignored.
func (s *AttachmentService) Upload(ctx context.Context, noteRef, fileName string, body io.Reader) (*domain.AttachmentDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionAttachmentsWrite); err != nil {
		return nil, err
	}

	note, err := visibleNote(ctx, s.notes, noteRef)
	if err != nil {
		return nil, err
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, invalidInput("file is empty")
	}

	contentType := http.DetectContentType(head)
	if !allowedContentType(contentType) {
		return nil, ErrUnsupportedContentType
	}

	// one byte past the limit tells us the upload was too large
	limited := io.LimitReader(io.MultiReader(bytes.NewReader(head), body), s.maxBytes+1)

	obj, err := s.storage.Put(ctx, fmt.Sprintf("%s/%s", attachmentKeyPrefix, note.ID), cleanFileName(fileName), contentType, limited)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	if obj.Size > s.maxBytes {
		s.removeBlob(ctx, obj.Path)
		return nil, ErrFileTooLarge
	}

	attachment := &domain.Attachment{
		NoteID:      note.ID,
		FileName:    cleanFileName(fileName),
		ContentType: contentType,
		Size:        obj.Size,
		StoragePath: obj.Path,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		s.removeBlob(ctx, obj.Path)
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	s.logger.Info("attachment uploaded",
		zap.String("attachment_id", attachment.ID.String()),
		zap.String("note_id", note.ID.String()),
		zap.String("content_type", contentType),
		zap.Int64("size", obj.Size),
	)
	s.cache.Invalidate(ctx, cache.PatternNotes)

	dto := mapper.ToAttachmentDTO(attachment)
	return &dto, nil
}

// List returns the attachments of a visible note
func (s *AttachmentService) List(ctx context.Context, noteRef string) ([]domain.AttachmentDTO, error) {
	note, err := visibleNote(ctx, s.notes, noteRef)
	if err != nil {
		return nil, err
	}

	attachments, err := s.attachments.ListByNote(ctx, note.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	dtos := make([]domain.AttachmentDTO, len(attachments))
	for i := range attachments {
		dtos[i] = mapper.ToAttachmentDTO(&attachments[i])
	}
	return dtos, nil
}

// Open returns the attachment metadata and its body. The caller must close the reader.
func (s *AttachmentService) Open(ctx context.Context, id uuid.UUID) (*domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if _, err := visibleNote(ctx, s.notes, attachment.NoteID.String()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrAttachmentNotFound
		}
		return nil, nil, err
	}

	body, err := s.storage.Open(ctx, attachment.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("attachment blob missing",
				zap.String("attachment_id", id.String()),
				zap.String("storage_path", attachment.StoragePath),
			)
			return nil, nil, ErrAttachmentNotFound
		}
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return attachment, body, nil
}

// Delete removes the attachment record and its blob
func (s *AttachmentService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePermission(ctx, domain.PermissionAttachmentsWrite); err != nil {
		return err
	}

	attachment, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.attachments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	s.removeBlob(ctx, attachment.StoragePath)

	s.logger.Info("attachment deleted", zap.String("attachment_id", id.String()))
	s.cache.Invalidate(ctx, cache.PatternNotes)
	return nil
}

func (s *AttachmentService) get(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	attachment, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return attachment, nil
}

func (s *AttachmentService) removeBlob(ctx context.Context, storagePath string) {
	if err := s.storage.Delete(ctx, storagePath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("failed to delete attachment blob", zap.String("storage_path", storagePath), zap.Error(err))
	}
}
