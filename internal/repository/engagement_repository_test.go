package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"github.com/inkwell-notes/notes-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLikeRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewLikeRepository(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db, "owner", domain.RoleOwner)
	note := testutil.CreateTestNote(t, db, owner, "n", domain.NoteStatusPublished)

	likeCount := func() int64 {
		var n domain.Note
		require.NoError(t, db.First(&n, "id = ?", note.ID).Error)
		return n.LikeCount
	}

	t.Run("first like counts", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &domain.Like{NoteID: note.ID, IPAddress: "1.2.3.4"}))
		assert.Equal(t, int64(1), likeCount())

		exists, err := repo.Exists(ctx, note.ID, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("second like from same ip is rejected", func(t *testing.T) {
		err := repo.Create(ctx, &domain.Like{NoteID: note.ID, IPAddress: "1.2.3.4"})
		assert.ErrorIs(t, err, repository.ErrLikeExists)
		assert.Equal(t, int64(1), likeCount())
	})

	t.Run("another ip may like", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &domain.Like{NoteID: note.ID, IPAddress: "5.6.7.8"}))
		assert.Equal(t, int64(2), likeCount())
	})

	t.Run("unlike", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, note.ID, "1.2.3.4"))
		assert.Equal(t, int64(1), likeCount())
		assert.ErrorIs(t, repo.Delete(ctx, note.ID, "1.2.3.4"), gorm.ErrRecordNotFound)
		assert.Equal(t, int64(1), likeCount())
	})
}

func TestCommentRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewCommentRepository(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db, "owner", domain.RoleOwner)
	visitor := testutil.CreateTestUser(t, db, "visitor", domain.RoleVisitor)
	note := testutil.CreateTestNote(t, db, owner, "n", domain.NoteStatusPublished)

	root := &domain.Comment{NoteID: note.ID, AuthorID: visitor.ID, Content: "root"}
	require.NoError(t, repo.Create(ctx, root))
	reply := &domain.Comment{NoteID: note.ID, AuthorID: owner.ID, ParentID: &root.ID, Content: "reply"}
	require.NoError(t, repo.Create(ctx, reply))
	other := &domain.Comment{NoteID: note.ID, AuthorID: visitor.ID, Content: "second root"}
	require.NoError(t, repo.Create(ctx, other))

	commentCount := func() int64 {
		var n domain.Note
		require.NoError(t, db.First(&n, "id = ?", note.ID).Error)
		return n.CommentCount
	}
	assert.Equal(t, int64(3), commentCount())

	t.Run("top level with replies", func(t *testing.T) {
		roots, total, err := repo.ListTopLevel(ctx, note.ID, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, roots, 2)
		assert.Equal(t, root.ID, roots[0].ID)
		require.NotNil(t, roots[0].Author)
		assert.Equal(t, "visitor", roots[0].Author.Username)

		replies, err := repo.ListReplies(ctx, []uuid.UUID{root.ID, other.ID})
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Equal(t, reply.ID, replies[0].ID)
	})

	t.Run("recent", func(t *testing.T) {
		recent, err := repo.ListRecent(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, recent, 2)
	})

	t.Run("deleting a root removes its replies", func(t *testing.T) {
		removed, err := repo.Delete(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)
		assert.Equal(t, int64(1), commentCount())

		_, err = repo.GetByID(ctx, reply.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestCategoryAndTagRepositories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	categories := repository.NewCategoryRepository(db)
	tags := repository.NewTagRepository(db)
	owner := testutil.CreateTestUser(t, db, "owner", domain.RoleOwner)

	category := &domain.Category{Name: "Cooking", Slug: "cooking"}
	require.NoError(t, categories.Create(ctx, category))
	tag := &domain.Tag{Name: "Pasta", Slug: "pasta"}
	require.NoError(t, tags.Create(ctx, tag))

	published := testutil.CreateTestNote(t, db, owner, "p", domain.NoteStatusPublished)
	draft := testutil.CreateTestNote(t, db, owner, "d", domain.NoteStatusDraft)
	for _, n := range []*domain.Note{published, draft} {
		require.NoError(t, db.Model(n).Update("category_id", category.ID).Error)
		require.NoError(t, db.Model(n).Association("Tags").Append(tag))
	}

	t.Run("counts only published notes", func(t *testing.T) {
		catCounts, err := categories.PublishedNoteCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), catCounts[category.ID])

		tagCounts, err := tags.PublishedNoteCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), tagCounts[tag.ID])
	})

	t.Run("name or slug taken", func(t *testing.T) {
		taken, err := categories.NameOrSlugTaken(ctx, "COOKING", "other", nil)
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = categories.NameOrSlugTaken(ctx, "Cooking", "cooking", &category.ID)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("deleting a category detaches notes", func(t *testing.T) {
		require.NoError(t, categories.Delete(ctx, category.ID))
		var n domain.Note
		require.NoError(t, db.First(&n, "id = ?", published.ID).Error)
		assert.Nil(t, n.CategoryID)
	})

	t.Run("deleting a tag removes associations", func(t *testing.T) {
		require.NoError(t, tags.Delete(ctx, tag.ID))
		var links int64
		require.NoError(t, db.Table("note_tags").Where("tag_id = ?", tag.ID).Count(&links).Error)
		assert.Zero(t, links)
		assert.ErrorIs(t, tags.Delete(ctx, tag.ID), gorm.ErrRecordNotFound)
	})
}

func TestUserRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	first := &domain.User{Username: "First", Email: "first@example.com", PasswordHash: "h", Role: domain.RoleVisitor}
	require.NoError(t, repo.CreateFirstAsOwner(ctx, first))
	assert.Equal(t, domain.RoleOwner, first.Role)

	second := &domain.User{Username: "second", Email: "second@example.com", PasswordHash: "h", Role: domain.RoleVisitor}
	require.NoError(t, repo.CreateFirstAsOwner(ctx, second))
	assert.Equal(t, domain.RoleVisitor, second.Role)

	found, err := repo.GetByIdentifier(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	found, err = repo.GetByIdentifier(ctx, "SECOND@example.com")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	usernameTaken, emailTaken, err := repo.Taken(ctx, "FIRST", "new@example.com")
	require.NoError(t, err)
	assert.True(t, usernameTaken)
	assert.False(t, emailTaken)

	owner, err := repo.FirstOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, owner.ID)

	users, total, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)
}
