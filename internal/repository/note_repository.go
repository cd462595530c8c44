package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts the note and links its (already persisted) tags
func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) error {
	return r.db.WithContext(ctx).Omit("Tags.*").Create(note).Error
}

func (r *NoteRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") })
}

func (r *NoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	var note domain.Note
	err := r.withRelations(ctx).First(&note, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *NoteRepository) GetBySlug(ctx context.Context, slug string) (*domain.Note, error) {
	var note domain.Note
	err := r.withRelations(ctx).First(&note, "slug = ?", slug).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// LikeCount reads the current like counter, including soft-deleted notes
func (r *NoteRepository) LikeCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&domain.Note{}).
		Where("id = ?", id).
		Select("like_count").
		Scan(&count).Error
	return count, err
}

// SlugExists includes soft-deleted notes since the unique index still covers them
func (r *NoteRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&domain.Note{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// Update saves scalar fields and, when replaceTags is set, replaces the tag set
func (r *NoteRepository) Update(ctx context.Context, note *domain.Note, replaceTags bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(note).Error; err != nil {
			return err
		}
		if !replaceTags {
			return nil
		}
		if len(note.Tags) == 0 {
			return tx.Model(note).Association("Tags").Clear()
		}
		return tx.Model(note).Association("Tags").Replace(note.Tags)
	})
}

// Delete soft-deletes the note and removes its comments, likes and attachment rows
func (r *NoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("note_id = ?", id).Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("note_id = ?", id).Delete(&domain.Attachment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Note{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns a page of notes matching filter. CategoryID must already be resolved
// from a slug, and Status left empty means every status.
func (r *NoteRepository) List(ctx context.Context, filter domain.NoteFilter) ([]domain.Note, int64, error) {
	var notes []domain.Note
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Note{})

	if filter.Status != "" {
		query = query.Where("notes.status = ?", filter.Status)
	}
	if filter.CategoryID != nil {
		query = query.Where("notes.category_id = ?", *filter.CategoryID)
	}
	if filter.Tag != "" {
		query = query.Where("notes.id IN (?)", r.db.WithContext(ctx).
			Table("note_tags").
			Select("note_tags.note_id").
			Joins("JOIN tags ON tags.id = note_tags.tag_id").
			Where("tags.slug = ?", filter.Tag))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(notes.title) LIKE ? OR LOWER(notes.summary) LIKE ? OR LOWER(notes.content) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case domain.NoteSortOldest:
		query = query.Order("COALESCE(notes.published_at, notes.created_at) ASC")
	case domain.NoteSortPopular:
		query = query.Order("notes.like_count DESC").Order("COALESCE(notes.published_at, notes.created_at) DESC")
	case domain.NoteSortViews:
		query = query.Order("notes.view_count DESC").Order("COALESCE(notes.published_at, notes.created_at) DESC")
	default:
		query = query.Order("COALESCE(notes.published_at, notes.created_at) DESC")
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Preload("Author").
		Preload("Category").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") }).
		Offset(offset).
		Limit(filter.PageSize).
		Find(&notes).Error

	return notes, total, err
}

func (r *NoteRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Note{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// Archive counts published notes per month, newest month first
func (r *NoteRepository) Archive(ctx context.Context) ([]domain.ArchiveEntryDTO, error) {
	var published []time.Time
	err := r.db.WithContext(ctx).Model(&domain.Note{}).
		Where("status = ? AND published_at IS NOT NULL", domain.NoteStatusPublished).
		Pluck("published_at", &published).Error
	if err != nil {
		return nil, err
	}

	type yearMonth struct{ year, month int }
	counts := make(map[yearMonth]int)
	for _, t := range published {
		t = t.UTC()
		counts[yearMonth{t.Year(), int(t.Month())}]++
	}

	entries := make([]domain.ArchiveEntryDTO, 0, len(counts))
	for ym, count := range counts {
		entries = append(entries, domain.ArchiveEntryDTO{Year: ym.year, Month: ym.month, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Year != entries[j].Year {
			return entries[i].Year > entries[j].Year
		}
		return entries[i].Month > entries[j].Month
	})
	return entries, nil
}

// ReconcileCounters recomputes like_count and comment_count from the source tables
// and returns how many notes had drifted.
func (r *NoteRepository) ReconcileCounters(ctx context.Context) (int64, error) {
	const likes = "(SELECT COUNT(*) FROM likes WHERE likes.note_id = notes.id)"
	const comments = "(SELECT COUNT(*) FROM comments WHERE comments.note_id = notes.id)"

	result := r.db.WithContext(ctx).Exec(
		"UPDATE notes SET like_count = " + likes + ", comment_count = " + comments +
			" WHERE deleted_at IS NULL AND (like_count <> " + likes + " OR comment_count <> " + comments + ")",
	)
	return result.RowsAffected, result.Error
}

// CountByStatus maps each status to its number of notes
func (r *NoteRepository) CountByStatus(ctx context.Context) (map[domain.NoteStatus]int64, error) {
	var rows []struct {
		Status domain.NoteStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Note{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.NoteStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *NoteRepository) TotalViews(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Note{}).
		Select("COALESCE(SUM(view_count), 0)").
		Scan(&total).Error
	return total, err
}

// TopByLikes returns the most liked published notes
func (r *NoteRepository) TopByLikes(ctx context.Context, limit int) ([]domain.Note, error) {
	var notes []domain.Note
	err := r.withRelations(ctx).
		Where("status = ?", domain.NoteStatusPublished).
		Order("like_count DESC").
		Order("view_count DESC").
		Limit(limit).
		Find(&notes).Error
	return notes, err
}

// EngagementSnapshot returns the current counters of every published note
func (r *NoteRepository) EngagementSnapshot(ctx context.Context) ([]domain.NoteEngagement, error) {
	var rows []domain.NoteEngagement
	err := r.db.WithContext(ctx).Model(&domain.Note{}).
		Select("id AS note_id, title, view_count AS views, like_count AS likes, comment_count AS comments").
		Where("status = ?", domain.NoteStatusPublished).
		Order("id").
		Scan(&rows).Error
	return rows, err
}
