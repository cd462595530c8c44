package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"github.com/inkwell-notes/notes-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTag(t *testing.T, db *gorm.DB, name, slug string) domain.Tag {
	t.Helper()
	tag := domain.Tag{Name: name, Slug: slug}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

func TestNoteRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNoteRepository(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db, "owner", domain.RoleOwner)
	category := testutil.CreateTestCategory(t, db, "Go")
	goTag := createTag(t, db, "Go", "go")
	dbTag := createTag(t, db, "Databases", "databases")

	note := &domain.Note{
		Title:      "Hello",
		Slug:       "hello",
		Content:    "body",
		Status:     domain.NoteStatusDraft,
		AuthorID:   owner.ID,
		CategoryID: &category.ID,
		Tags:       []domain.Tag{goTag, dbTag},
	}
	require.NoError(t, repo.Create(ctx, note))

	t.Run("by id preloads relations", func(t *testing.T) {
		found, err := repo.GetByID(ctx, note.ID)
		require.NoError(t, err)
		require.NotNil(t, found.Author)
		assert.Equal(t, "owner", found.Author.Username)
		require.NotNil(t, found.Category)
		assert.Equal(t, "Go", found.Category.Name)
		require.Len(t, found.Tags, 2)
		assert.Equal(t, "Databases", found.Tags[0].Name, "tags ordered by name")
	})

	t.Run("by slug", func(t *testing.T) {
		found, err := repo.GetBySlug(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, note.ID, found.ID)
	})

	t.Run("slug exists after soft delete", func(t *testing.T) {
		other := testutil.CreateTestNote(t, db, owner, "Gone", domain.NoteStatusPublished)
		require.NoError(t, repo.Delete(ctx, other.ID))

		_, err := repo.GetByID(ctx, other.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		exists, err := repo.SlugExists(ctx, other.Slug)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("tag rows are not duplicated", func(t *testing.T) {
		var count int64
		require.NoError(t, db.Model(&domain.Tag{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}

func TestNoteRepository_UpdateReplacesTags(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNoteRepository(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db, "owner", domain.RoleOwner)
	a := createTag(t, db, "A", "a")
	b := createTag(t, db, "B", "b")

	note := &domain.Note{Title: "T", Slug: "t", Content: "c", Status: domain.NoteStatusDraft, AuthorID: owner.ID, Tags: []domain.Tag{a}}
	require.NoError(t, repo.Create(ctx, note))

	note.Title = "T2"
	note.Tags = []domain.Tag{b}
	require.NoError(t, repo.Update(ctx, note, true))

	found, err := repo.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "T2", found.Title)
	require.Len(t, found.Tags, 1)
	assert.Equal(t, "b", found.Tags[0].Slug)

	found.Tags = nil
	require.NoError(t, repo.Update(ctx, found, true))
	found, err = repo.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Empty(t, found.Tags)
}

func TestNoteRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNoteRepository(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db, "owner", domain.RoleOwner)
	category := testutil.CreateTestCategory(t, db, "Travel")
	tag := createTag(t, db, "Golang", "golang")

	old := testutil.CreateTestNote(t, db, owner, "Old post about gophers", domain.NoteStatusPublished)
	oldTime := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.Model(old).Updates(map[string]interface{}{"published_at": oldTime, "like_count": 5, "category_id": category.ID}).Error)
	require.NoError(t, db.Model(old).Association("Tags").Append(&tag))

	recent := testutil.CreateTestNote(t, db, owner, "Recent post", domain.NoteStatusPublished)
	require.NoError(t, db.Model(recent).Update("view_count", 50).Error)
	testutil.CreateTestNote(t, db, owner, "Secret draft", domain.NoteStatusDraft)

	base := domain.NoteFilter{Page: 1, PageSize: 10}

	t.Run("published only newest first", func(t *testing.T) {
		f := base
		f.Status = domain.NoteStatusPublished
		notes, total, err := repo.List(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, notes, 2)
		assert.Equal(t, recent.ID, notes[0].ID)
		assert.Equal(t, old.ID, notes[1].ID)
	})

	t.Run("all statuses", func(t *testing.T) {
		_, total, err := repo.List(ctx, base)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("oldest popular and views sorts", func(t *testing.T) {
		f := base
		f.Status = domain.NoteStatusPublished

		f.Sort = domain.NoteSortOldest
		notes, _, err := repo.List(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, old.ID, notes[0].ID)

		f.Sort = domain.NoteSortPopular
		notes, _, err = repo.List(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, old.ID, notes[0].ID)

		f.Sort = domain.NoteSortViews
		notes, _, err = repo.List(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, recent.ID, notes[0].ID)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		f := base
		f.Search = "GOPHERS"
		notes, total, err := repo.List(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, old.ID, notes[0].ID)
	})

	t.Run("by category and tag", func(t *testing.T) {
		f := base
		f.CategoryID = &category.ID
		notes, _, err := repo.List(ctx, f)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, old.ID, notes[0].ID)

		f = base
		f.Tag = "golang"
		notes, _, err = repo.List(ctx, f)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, old.ID, notes[0].ID)
		require.Len(t, notes[0].Tags, 1)
	})

	t.Run("pagination", func(t *testing.T) {
		f := base
		f.PageSize = 1
		f.Page = 2
		notes, total, err := repo.List(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, notes, 1)
	})
}

func TestNoteRepository_ArchiveAndCounters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNoteRepository(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db, "owner", domain.RoleOwner)

	jan := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{jan, jan.Add(time.Hour), mar} {
		n := testutil.CreateTestNote(t, db, owner, "n", domain.NoteStatusPublished)
		require.NoError(t, db.Model(n).Update("published_at", at).Error)
	}
	testutil.CreateTestNote(t, db, owner, "draft", domain.NoteStatusDraft)

	entries, err := repo.Archive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ArchiveEntryDTO{
		{Year: 2024, Month: 3, Count: 1},
		{Year: 2024, Month: 1, Count: 2},
	}, entries)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[domain.NoteStatusPublished])
	assert.Equal(t, int64(1), counts[domain.NoteStatusDraft])
}

func TestNoteRepository_ReconcileCounters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNoteRepository(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db, "owner", domain.RoleOwner)
	note := testutil.CreateTestNote(t, db, owner, "drifted", domain.NoteStatusPublished)
	clean := testutil.CreateTestNote(t, db, owner, "clean", domain.NoteStatusPublished)

	require.NoError(t, db.Create(&domain.Like{NoteID: note.ID, IPAddress: "10.0.0.1"}).Error)
	require.NoError(t, db.Create(&domain.Comment{NoteID: note.ID, AuthorID: owner.ID, Content: "hi"}).Error)
	require.NoError(t, db.Model(note).Updates(map[string]interface{}{"like_count": 7, "comment_count": 0}).Error)

	fixed, err := repo.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fixed)

	found, err := repo.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.LikeCount)
	assert.Equal(t, int64(1), found.CommentCount)

	other, err := repo.GetByID(ctx, clean.ID)
	require.NoError(t, err)
	assert.Zero(t, other.LikeCount)

	snapshot, err := repo.EngagementSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot, 2)
}

func TestNoteRepository_DeleteCascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNoteRepository(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db, "owner", domain.RoleOwner)
	note := testutil.CreateTestNote(t, db, owner, "n", domain.NoteStatusPublished)

	require.NoError(t, db.Create(&domain.Like{NoteID: note.ID, IPAddress: "10.0.0.1"}).Error)
	require.NoError(t, db.Create(&domain.Comment{NoteID: note.ID, AuthorID: owner.ID, Content: "hi"}).Error)
	require.NoError(t, db.Create(&domain.Attachment{NoteID: note.ID, FileName: "a.txt", ContentType: "text/plain", StoragePath: "x"}).Error)

	require.NoError(t, repo.Delete(ctx, note.ID))

	for _, model := range []interface{}{&domain.Like{}, &domain.Comment{}, &domain.Attachment{}} {
		var count int64
		require.NoError(t, db.Model(model).Where("note_id = ?", note.ID).Count(&count).Error)
		assert.Zero(t, count)
	}

	assert.ErrorIs(t, repo.Delete(ctx, note.ID), gorm.ErrRecordNotFound)
}
