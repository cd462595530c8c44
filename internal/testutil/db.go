// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/database"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter atomic.Int64

// SetupTestDB opens an isolated in-memory sqlite database with the schema migrated.
// A single connection is used so every query sees the same in-memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:notes_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), database.Config())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateTestUser inserts a user with the given role
func CreateTestUser(t *testing.T, db *gorm.DB, username string, role domain.UserRole) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
		DisplayName:  username,
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestCategory inserts a category
func CreateTestCategory(t *testing.T, db *gorm.DB, name string) *domain.Category {
	t.Helper()
	category := &domain.Category{
		Name: name,
		Slug: fmt.Sprintf("cat-%s", uuid.NewString()[:8]),
	}
	require.NoError(t, db.Create(category).Error)
	return category
}

// CreateTestNote inserts a note authored by author with the given status
func CreateTestNote(t *testing.T, db *gorm.DB, author *domain.User, title string, status domain.NoteStatus) *domain.Note {
	t.Helper()
	note := &domain.Note{
		Title:    title,
		Slug:     fmt.Sprintf("note-%s", uuid.NewString()[:8]),
		Summary:  "Summary of " + title,
		Content:  "Content of " + title,
		Status:   status,
		AuthorID: author.ID,
	}
	if status == domain.NoteStatusPublished {
		now := time.Now().UTC()
		note.PublishedAt = &now
	}
	require.NoError(t, db.Create(note).Error)
	return note
}

// OwnerContext returns a context authenticated as the given owner
func OwnerContext(user *domain.User) context.Context {
	return auth.WithUserContext(context.Background(), UserContextFor(user))
}

// UserContextFor builds the request identity for a stored user
func UserContextFor(user *domain.User) *auth.UserContext {
	return &auth.UserContext{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        user.Role,
	}
}
