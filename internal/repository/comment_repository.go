package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts the comment and bumps the note's comment counter
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Note{}).
			Where("id = ?", comment.NoteID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error
	})
}

func (r *CommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.db.WithContext(ctx).Preload("Author").First(&comment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListTopLevel returns a page of root comments on a note, oldest first
func (r *CommentRepository) ListTopLevel(ctx context.Context, noteID uuid.UUID, page, pageSize int) ([]domain.Comment, int64, error) {
	var comments []domain.Comment
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("note_id = ? AND parent_id IS NULL", noteID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Author").
		Order("created_at ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&comments).Error
	return comments, total, err
}

// ListReplies returns the replies to any of parentIDs, oldest first
func (r *CommentRepository) ListReplies(ctx context.Context, parentIDs []uuid.UUID) ([]domain.Comment, error) {
	var replies []domain.Comment
	if len(parentIDs) == 0 {
		return replies, nil
	}
	err := r.db.WithContext(ctx).Preload("Author").
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}

// Delete removes the comment and its replies, decrementing the note counter by the
// number of rows removed. It returns that number.
func (r *CommentRepository) Delete(ctx context.Context, comment *domain.Comment) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? OR parent_id = ?", comment.ID, comment.ID).Delete(&domain.Comment{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		if removed == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&domain.Note{}).
			Where("id = ?", comment.NoteID).
			UpdateColumn("comment_count", gorm.Expr("CASE WHEN comment_count > ? THEN comment_count - ? ELSE 0 END", removed, removed)).Error
	})
	return removed, err
}

// ListRecent returns the newest comments across visible notes
func (r *CommentRepository) ListRecent(ctx context.Context, limit int) ([]domain.Comment, error) {
	var comments []domain.Comment
	session := r.db.WithContext(ctx)
	err := session.Preload("Author").
		Where("note_id IN (?)", session.Model(&domain.Note{}).Select("id")).
		Order("created_at DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

func (r *CommentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Comment{}).Count(&count).Error
	return count, err
}
