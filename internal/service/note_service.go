package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/mapper"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"github.com/inkwell-notes/notes-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NoteService implements authoring and reading of notes
type NoteService struct {
	notes       *repository.NoteRepository
	users       *repository.UserRepository
	categories  *repository.CategoryRepository
	attachments *repository.AttachmentRepository
	tags        *TagService
	storage     storage.Storage
	cache       CacheInvalidator
	logger      *zap.Logger
	now         func() time.Time
}

func NewNoteService(
	notes *repository.NoteRepository,
	users *repository.UserRepository,
	categories *repository.CategoryRepository,
	attachments *repository.AttachmentRepository,
	tags *TagService,
	store storage.Storage,
	cache CacheInvalidator,
	logger *zap.Logger,
) *NoteService {
	return &NoteService{
		notes:       notes,
		users:       users,
		categories:  categories,
		attachments: attachments,
		tags:        tags,
		storage:     store,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

// visibleNote loads a note by id or slug. Drafts are reported as missing
// unless the caller may read drafts.
func visibleNote(ctx context.Context, notes *repository.NoteRepository, idOrSlug string) (*domain.Note, error) {
	id, slug := parseIDOrSlug(idOrSlug)
	var (
		note *domain.Note
		err  error
	)
	if slug == "" {
		note, err = notes.GetByID(ctx, id)
	} else {
		note, err = notes.GetBySlug(ctx, slug)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	if !note.IsPublished() && !auth.CanInContext(ctx, domain.PermissionNotesReadDrafts) {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// List returns a page of notes. Callers without draft access only ever see published notes.
func (s *NoteService) List(ctx context.Context, filter domain.NoteFilter) (*domain.PaginatedResponse, error) {
	filter.Page, filter.PageSize = NormalizePage(filter.Page, filter.PageSize)

	switch filter.Sort {
	case "", domain.NoteSortNewest, domain.NoteSortOldest, domain.NoteSortPopular, domain.NoteSortViews:
	default:
		return nil, invalidInput("sort must be one of newest, oldest, popular, views")
	}

	if !auth.CanInContext(ctx, domain.PermissionNotesReadDrafts) {
		filter.Status = domain.NoteStatusPublished
	} else if filter.Status != "" && !filter.Status.IsValid() {
		return nil, invalidInput("status must be draft or published")
	}

	if filter.CategoryID == nil && filter.Category != "" {
		category, err := s.categories.GetBySlug(ctx, strings.ToLower(filter.Category))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewPaginatedResponse([]domain.NoteSummaryDTO{}, 0, filter.Page, filter.PageSize), nil
			}
			return nil, fmt.Errorf("failed to resolve category: %w", err)
		}
		filter.CategoryID = &category.ID
	}
	filter.Tag = strings.ToLower(strings.TrimSpace(filter.Tag))

	notes, total, err := s.notes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	return domain.NewPaginatedResponse(mapper.ToNoteSummaryDTOs(notes), total, filter.Page, filter.PageSize), nil
}

// Get returns a note by id or slug and counts the view for non-owner readers
func (s *NoteService) Get(ctx context.Context, idOrSlug string) (*domain.NoteDTO, error) {
	note, err := visibleNote(ctx, s.notes, idOrSlug)
	if err != nil {
		return nil, err
	}

	if !auth.IsOwnerContext(ctx) {
		if err := s.notes.IncrementViewCount(ctx, note.ID); err != nil {
			s.logger.Warn("failed to increment view count", zap.String("note_id", note.ID.String()), zap.Error(err))
		} else {
			note.ViewCount++
		}
	}

	dto := mapper.ToNoteDTO(note)
	return &dto, nil
}

// Create stores a new note authored by the caller
func (s *NoteService) Create(ctx context.Context, req *domain.CreateNoteRequest) (*domain.NoteDTO, error) {
	caller, err := requirePermission(ctx, domain.PermissionNotesWrite)
	if err != nil {
		return nil, err
	}

	authorID, err := s.authorFor(ctx, caller)
	if err != nil {
		return nil, err
	}

	note := &domain.Note{AuthorID: authorID, Status: domain.NoteStatusDraft}
	if err := s.apply(ctx, note, noteFields(*req)); err != nil {
		return nil, err
	}

	base := Slugify(note.Title)
	if base == "" {
		base = "note"
	}
	note.Slug, err = uniqueSlug(ctx, base, s.notes.SlugExists)
	if err != nil {
		return nil, err
	}

	if err := s.notes.Create(ctx, note); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, kindError(ErrConflict, "a note with this slug already exists")
		}
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	s.logger.Info("note created",
		zap.String("note_id", note.ID.String()),
		zap.String("slug", note.Slug),
		zap.String("status", string(note.Status)),
	)
	s.invalidate(ctx)

	return s.reload(ctx, note.ID)
}

// Update replaces the editable fields of a note. The slug follows the title only when the title changes.
func (s *NoteService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateNoteRequest) (*domain.NoteDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionNotesWrite); err != nil {
		return nil, err
	}

	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	oldTitle := note.Title
	if err := s.apply(ctx, note, noteFields(*req)); err != nil {
		return nil, err
	}

	if note.Title != oldTitle {
		if base := Slugify(note.Title); base != "" && base != note.Slug {
			current := note.Slug
			note.Slug, err = uniqueSlug(ctx, base, func(ctx context.Context, slug string) (bool, error) {
				if slug == current {
					return false, nil
				}
				return s.notes.SlugExists(ctx, slug)
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if err := s.notes.Update(ctx, note, true); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, kindError(ErrConflict, "a note with this slug already exists")
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	s.invalidate(ctx)
	return s.reload(ctx, note.ID)
}

// Publish makes a note public; the first publication stamps PublishedAt
func (s *NoteService) Publish(ctx context.Context, id uuid.UUID) (*domain.NoteDTO, error) {
	return s.setStatus(ctx, id, domain.NoteStatusPublished)
}

// Unpublish returns a note to draft. PublishedAt is kept.
func (s *NoteService) Unpublish(ctx context.Context, id uuid.UUID) (*domain.NoteDTO, error) {
	return s.setStatus(ctx, id, domain.NoteStatusDraft)
}

func (s *NoteService) setStatus(ctx context.Context, id uuid.UUID, status domain.NoteStatus) (*domain.NoteDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionNotesWrite); err != nil {
		return nil, err
	}

	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.Status == status {
		dto := mapper.ToNoteDTO(note)
		return &dto, nil
	}

	note.Status = status
	s.stampPublished(note)

	if err := s.notes.Update(ctx, note, false); err != nil {
		return nil, fmt.Errorf("failed to update note status: %w", err)
	}

	s.logger.Info("note status changed", zap.String("note_id", id.String()), zap.String("status", string(status)))
	s.invalidate(ctx)
	return s.reload(ctx, id)
}

// Delete soft-deletes a note along with its comments, likes and attachments
func (s *NoteService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePermission(ctx, domain.PermissionNotesDelete); err != nil {
		return err
	}

	attachments, err := s.attachments.ListByNote(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list attachments: %w", err)
	}

	if err := s.notes.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoteNotFound
		}
		return fmt.Errorf("failed to delete note: %w", err)
	}

	for _, a := range attachments {
		if err := s.storage.Delete(ctx, a.StoragePath); err != nil {
			s.logger.Warn("failed to delete attachment blob",
				zap.String("attachment_id", a.ID.String()),
				zap.String("storage_path", a.StoragePath),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("note deleted", zap.String("note_id", id.String()), zap.Int("attachments", len(attachments)))
	s.invalidate(ctx)
	return nil
}

// Archive lists months with published notes
func (s *NoteService) Archive(ctx context.Context) ([]domain.ArchiveEntryDTO, error) {
	entries, err := s.notes.Archive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build archive: %w", err)
	}
	return entries, nil
}

// noteFields is the shared shape of create and update requests
type noteFields struct {
	Title      string
	Summary    string
	Content    string
	CoverImage string
	CategoryID *uuid.UUID
	Tags       []string
	Status     domain.NoteStatus
}

func (s *NoteService) apply(ctx context.Context, note *domain.Note, f noteFields) error {
	title := strings.TrimSpace(f.Title)
	if title == "" || len([]rune(title)) > 200 {
		return invalidInput("title must be 1-200 characters")
	}
	content := strings.TrimSpace(f.Content)
	if content == "" {
		return invalidInput("content is required")
	}
	if len(f.Tags) > 10 {
		return invalidInput("a note can have at most 10 tags")
	}

	if f.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *f.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidInput("category %s does not exist", f.CategoryID.String())
			}
			return fmt.Errorf("failed to get category: %w", err)
		}
	}

	tags, err := s.tags.EnsureTags(ctx, f.Tags)
	if err != nil {
		return err
	}

	note.Title = title
	note.Summary = strings.TrimSpace(f.Summary)
	note.Content = f.Content
	note.CoverImage = strings.TrimSpace(f.CoverImage)
	note.CategoryID = f.CategoryID
	note.Category = nil
	note.Tags = tags
	if f.Status != "" {
		note.Status = f.Status
	}
	s.stampPublished(note)
	return nil
}

func (s *NoteService) stampPublished(note *domain.Note) {
	if note.IsPublished() && note.PublishedAt == nil {
		now := s.now().UTC()
		note.PublishedAt = &now
	}
}

// authorFor maps the caller to a stored user; the API key identity writes as the first owner
func (s *NoteService) authorFor(ctx context.Context, caller *auth.UserContext) (uuid.UUID, error) {
	if caller != nil && !caller.System {
		return caller.UserID, nil
	}
	owner, err := s.users.FirstOwner(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, invalidInput("no owner account exists to author the note")
		}
		return uuid.Nil, fmt.Errorf("failed to find owner: %w", err)
	}
	return owner.ID, nil
}

func (s *NoteService) load(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

func (s *NoteService) reload(ctx context.Context, id uuid.UUID) (*domain.NoteDTO, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToNoteDTO(note)
	return &dto, nil
}

func (s *NoteService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, cache.PatternNotes, cache.PatternCategories, cache.PatternTags, cache.PatternStats)
}
