package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"gorm.io/gorm"
)

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	var tag domain.Tag
	err := r.db.WithContext(ctx).First(&tag, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *TagRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	var tag domain.Tag
	err := r.db.WithContext(ctx).First(&tag, "slug = ?", slug).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindBySlugs returns the tags whose slug is in slugs
func (r *TagRepository) FindBySlugs(ctx context.Context, slugs []string) ([]domain.Tag, error) {
	var tags []domain.Tag
	if len(slugs) == 0 {
		return tags, nil
	}
	err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&tags).Error
	return tags, err
}

// NameOrSlugTaken reports whether another tag already uses name or slug
func (r *TagRepository) NameOrSlugTaken(ctx context.Context, name, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Tag{}).
		Where("(LOWER(name) = LOWER(?) OR slug = ?)", name, slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *TagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error
	return tags, err
}

func (r *TagRepository) Update(ctx context.Context, tag *domain.Tag) error {
	return r.db.WithContext(ctx).Save(tag).Error
}

// Delete removes the tag together with its note associations
func (r *TagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM note_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Tag{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// PublishedNoteCounts maps tag id to its number of published, non-deleted notes
func (r *TagRepository) PublishedNoteCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		TagID uuid.UUID
		Count int64
	}
	err := r.db.WithContext(ctx).
		Table("note_tags").
		Select("note_tags.tag_id AS tag_id, COUNT(*) AS count").
		Joins("JOIN notes ON notes.id = note_tags.note_id").
		Where("notes.status = ? AND notes.deleted_at IS NULL", domain.NoteStatusPublished).
		Group("note_tags.tag_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.TagID] = row.Count
	}
	return counts, nil
}

func (r *TagRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Tag{}).Count(&count).Error
	return count, err
}
