package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxUserAgentLength = 500

// LikeService records anonymous likes, one per note and client address
type LikeService struct {
	likes  *repository.LikeRepository
	notes  *repository.NoteRepository
	cache  CacheInvalidator
	logger *zap.Logger
}

func NewLikeService(likes *repository.LikeRepository, notes *repository.NoteRepository, cache CacheInvalidator, logger *zap.Logger) *LikeService {
	return &LikeService{
		likes:  likes,
		notes:  notes,
		cache:  cache,
		logger: logger,
	}
}

// publishedNote resolves a note that accepts likes. Drafts never do, even for owners.
func (s *LikeService) publishedNote(ctx context.Context, noteRef string) (*domain.Note, error) {
	note, err := visibleNote(ctx, s.notes, noteRef)
	if err != nil {
		return nil, err
	}
	if !note.IsPublished() {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// Like records a like from ip
func (s *LikeService) Like(ctx context.Context, noteRef, ip, userAgent string) (*domain.LikeStatusDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionLikesWrite); err != nil {
		return nil, err
	}
	if ip == "" {
		return nil, invalidInput("client address could not be determined")
	}

	note, err := s.publishedNote(ctx, noteRef)
	if err != nil {
		return nil, err
	}

	if len(userAgent) > maxUserAgentLength {
		userAgent = strings.ToValidUTF8(userAgent[:maxUserAgentLength], "")
	}
	like := &domain.Like{NoteID: note.ID, IPAddress: ip, UserAgent: userAgent}
	if err := s.likes.Create(ctx, like); err != nil {
		if errors.Is(err, repository.ErrLikeExists) {
			return nil, ErrAlreadyLiked
		}
		return nil, fmt.Errorf("failed to record like: %w", err)
	}

	s.logger.Debug("note liked", zap.String("note_id", note.ID.String()))
	s.cache.Invalidate(ctx, cache.PatternNotes, cache.PatternStats)

	return s.status(ctx, note, true)
}

// Unlike removes the like from ip
func (s *LikeService) Unlike(ctx context.Context, noteRef, ip string) (*domain.LikeStatusDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionLikesWrite); err != nil {
		return nil, err
	}

	note, err := s.publishedNote(ctx, noteRef)
	if err != nil {
		return nil, err
	}

	if err := s.likes.Delete(ctx, note.ID, ip); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLikeNotFound
		}
		return nil, fmt.Errorf("failed to remove like: %w", err)
	}

	s.cache.Invalidate(ctx, cache.PatternNotes, cache.PatternStats)

	return s.status(ctx, note, false)
}

// status re-reads the counter after a committed change so concurrent likes are reflected
func (s *LikeService) status(ctx context.Context, note *domain.Note, liked bool) (*domain.LikeStatusDTO, error) {
	count, err := s.notes.LikeCount(ctx, note.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read like count: %w", err)
	}
	return &domain.LikeStatusDTO{NoteID: note.ID, Liked: liked, LikeCount: count}, nil
}

// Status reports whether ip has liked the note
func (s *LikeService) Status(ctx context.Context, noteRef, ip string) (*domain.LikeStatusDTO, error) {
	note, err := s.publishedNote(ctx, noteRef)
	if err != nil {
		return nil, err
	}

	liked := false
	if ip != "" {
		liked, err = s.likes.Exists(ctx, note.ID, ip)
		if err != nil {
			return nil, fmt.Errorf("failed to check like: %w", err)
		}
	}
	return &domain.LikeStatusDTO{NoteID: note.ID, Liked: liked, LikeCount: note.LikeCount}, nil
}
