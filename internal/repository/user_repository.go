package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// CreateFirstAsOwner inserts user, promoting it to owner when no users exist yet.
// The count and insert share a transaction.
func (r *UserRepository) CreateFirstAsOwner(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			user.Role = domain.RoleOwner
		}
		return tx.Create(user).Error
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIdentifier looks a user up by username or email, case-insensitively
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	var user domain.User
	ident := strings.ToLower(strings.TrimSpace(identifier))
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ? OR LOWER(email) = ?", ident, ident).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Taken reports whether username or email are already registered
func (r *UserRepository) Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	var users []domain.User
	err = r.db.WithContext(ctx).
		Select("username", "email").
		Where("LOWER(username) = ? OR LOWER(email) = ?", strings.ToLower(username), strings.ToLower(email)).
		Find(&users).Error
	if err != nil {
		return false, false, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			usernameTaken = true
		}
		if strings.EqualFold(u.Email, email) {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

// FirstOwner returns the earliest owner account
func (r *UserRepository) FirstOwner(ctx context.Context) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("role = ?", domain.RoleOwner).
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}).Error
}

func (r *UserRepository) List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	var users []domain.User
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.User{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at ASC").Find(&users).Error
	return users, total, err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}
