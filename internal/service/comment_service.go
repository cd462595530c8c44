package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/mapper"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCommentLength = 2000

type CommentService struct {
	comments *repository.CommentRepository
	notes    *repository.NoteRepository
	cache    CacheInvalidator
	logger   *zap.Logger
}

func NewCommentService(comments *repository.CommentRepository, notes *repository.NoteRepository, cache CacheInvalidator, logger *zap.Logger) *CommentService {
	return &CommentService{
		comments: comments,
		notes:    notes,
		cache:    cache,
		logger:   logger,
	}
}

// List returns a page of top-level comments on a note, each with its replies
func (s *CommentService) List(ctx context.Context, noteRef string, page, pageSize int) (*domain.PaginatedResponse, error) {
	note, err := visibleNote(ctx, s.notes, noteRef)
	if err != nil {
		return nil, err
	}
	page, pageSize = NormalizePage(page, pageSize)

	roots, total, err := s.comments.ListTopLevel(ctx, note.ID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	rootIDs := make([]uuid.UUID, len(roots))
	for i := range roots {
		rootIDs[i] = roots[i].ID
	}
	replies, err := s.comments.ListReplies(ctx, rootIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}

	return domain.NewPaginatedResponse(mapper.ToCommentThreads(roots, replies), total, page, pageSize), nil
}

// Create adds a comment by the caller. A reply to a reply is attached to the top-level comment.
func (s *CommentService) Create(ctx context.Context, noteRef string, req *domain.CreateCommentRequest) (*domain.CommentDTO, error) {
	caller, err := requirePermission(ctx, domain.PermissionCommentsWrite)
	if err != nil {
		return nil, err
	}
	if caller == nil || caller.System {
		return nil, kindError(ErrForbidden, "comments must be written by a user account")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" || len([]rune(content)) > maxCommentLength {
		return nil, invalidInput("content must be 1-%d characters", maxCommentLength)
	}

	note, err := visibleNote(ctx, s.notes, noteRef)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		NoteID:   note.ID,
		AuthorID: caller.UserID,
		Content:  content,
	}

	if req.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidParent
			}
			return nil, fmt.Errorf("failed to get parent comment: %w", err)
		}
		if parent.NoteID != note.ID {
			return nil, ErrInvalidParent
		}
		parentID := parent.ID
		if parent.ParentID != nil {
			parentID = *parent.ParentID
		}
		comment.ParentID = &parentID
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.logger.Info("comment created",
		zap.String("comment_id", comment.ID.String()),
		zap.String("note_id", note.ID.String()),
		zap.String("author_id", caller.UserID.String()),
	)
	s.cache.Invalidate(ctx, cache.PatternNotes, cache.PatternStats)

	created, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload comment: %w", err)
	}
	dto := mapper.ToCommentDTO(created)
	return &dto, nil
}

// Delete removes a comment and its replies. Authors may delete their own comments; moderators any.
func (s *CommentService) Delete(ctx context.Context, id uuid.UUID) error {
	caller, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to get comment: %w", err)
	}

	if comment.AuthorID != caller.UserID && !caller.HasPermission(domain.PermissionCommentsModerate) {
		return kindError(ErrForbidden, "only the author or a moderator can delete this comment")
	}

	removed, err := s.comments.Delete(ctx, comment)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.logger.Info("comment deleted",
		zap.String("comment_id", id.String()),
		zap.String("deleted_by", caller.UserID.String()),
		zap.Int64("removed", removed),
	)
	s.cache.Invalidate(ctx, cache.PatternNotes, cache.PatternStats)
	return nil
}

// ListRecent returns the newest comments across all notes (moderators only)
func (s *CommentService) ListRecent(ctx context.Context, limit int) ([]domain.CommentDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionCommentsModerate); err != nil {
		return nil, err
	}
	_, limit = NormalizePage(1, limit)

	comments, err := s.comments.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent comments: %w", err)
	}

	dtos := make([]domain.CommentDTO, len(comments))
	for i := range comments {
		dtos[i] = mapper.ToCommentDTO(&comments[i])
	}
	return dtos, nil
}
