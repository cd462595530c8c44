package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"gorm.io/gorm"
)

// ErrLikeExists is returned when the (note, ip) pair already liked the note
var ErrLikeExists = errors.New("like already exists")

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Create records the like and bumps the note counter in one transaction.
// The unique (note_id, ip_address) index is the final arbiter under concurrency.
func (r *LikeRepository) Create(ctx context.Context, like *domain.Like) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&domain.Like{}).
			Where("note_id = ? AND ip_address = ?", like.NoteID, like.IPAddress).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrLikeExists
		}

		if err := tx.Create(like).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrLikeExists
			}
			return err
		}

		return tx.Model(&domain.Note{}).
			Where("id = ?", like.NoteID).
			UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error
	})
}

// Delete removes the like from ip and decrements the counter
func (r *LikeRepository) Delete(ctx context.Context, noteID uuid.UUID, ip string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("note_id = ? AND ip_address = ?", noteID, ip).Delete(&domain.Like{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&domain.Note{}).
			Where("id = ?", noteID).
			UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).Error
	})
}

func (r *LikeRepository) Exists(ctx context.Context, noteID uuid.UUID, ip string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Like{}).
		Where("note_id = ? AND ip_address = ?", noteID, ip).
		Count(&count).Error
	return count > 0, err
}

func (r *LikeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Like{}).Count(&count).Error
	return count, err
}
