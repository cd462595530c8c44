package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/service"
	"github.com/inkwell-notes/notes-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello-world"},
		{"  many   spaces  ", "many-spaces"},
		{"Ærlig talt: blåbær", "ærlig-talt-blåbær"},
		{"---", ""},
		{"Go 1.23 release", "go-1-23-release"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.Slugify(tt.in), tt.in)
	}
}

func TestNormalizePage(t *testing.T) {
	page, size := service.NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)

	page, size = service.NormalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, size)
}

func TestNoteService_Create(t *testing.T) {
	f := newFixture(t)

	t.Run("draft with tags and category", func(t *testing.T) {
		category, err := f.categories.Create(f.ownerCtx(), &domain.CreateCategoryRequest{Name: "Go"})
		require.NoError(t, err)

		note, err := f.notes.Create(f.ownerCtx(), &domain.CreateNoteRequest{
			Title:      "  First Steps  ",
			Content:    "hello",
			CategoryID: &category.ID,
			Tags:       []string{"Golang", "golang", " tips "},
		})
		require.NoError(t, err)

		assert.Equal(t, "First Steps", note.Title)
		assert.Equal(t, "first-steps", note.Slug)
		assert.Equal(t, domain.NoteStatusDraft, note.Status)
		assert.Nil(t, note.PublishedAt)
		require.NotNil(t, note.Category)
		assert.Equal(t, "go", note.Category.Slug)
		require.Len(t, note.Tags, 2)
		require.NotNil(t, note.Author)
		assert.Equal(t, f.owner.ID, note.Author.ID)

		assert.Contains(t, f.cache.Seen(), cache.PatternNotes)
		assert.Contains(t, f.cache.Seen(), cache.PatternStats)
	})

	t.Run("slug collisions get a suffix", func(t *testing.T) {
		a := f.publish(t, "Same Title")
		b := f.publish(t, "Same Title")
		assert.Equal(t, "same-title", a.Slug)
		assert.Equal(t, "same-title-2", b.Slug)
		assert.NotNil(t, a.PublishedAt)
	})

	t.Run("title without letters", func(t *testing.T) {
		note, err := f.notes.Create(f.ownerCtx(), &domain.CreateNoteRequest{Title: "!!!", Content: "x"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(note.Slug, "note"))
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.notes.Create(f.ownerCtx(), &domain.CreateNoteRequest{Title: "   ", Content: "x"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = f.notes.Create(f.ownerCtx(), &domain.CreateNoteRequest{Title: "t", Content: "  "})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		missing := uuid.New()
		_, err = f.notes.Create(f.ownerCtx(), &domain.CreateNoteRequest{Title: "t", Content: "x", CategoryID: &missing})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("permissions", func(t *testing.T) {
		_, err := f.notes.Create(f.visitorCtx(), &domain.CreateNoteRequest{Title: "t", Content: "x"})
		assert.ErrorIs(t, err, service.ErrForbidden)

		_, err = f.notes.Create(context.Background(), &domain.CreateNoteRequest{Title: "t", Content: "x"})
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("system identity writes as the first owner", func(t *testing.T) {
		note, err := f.notes.Create(systemCtx(), &domain.CreateNoteRequest{Title: "Automated", Content: "x"})
		require.NoError(t, err)
		require.NotNil(t, note.Author)
		assert.Equal(t, f.owner.ID, note.Author.ID)
	})
}

func TestNoteService_Visibility(t *testing.T) {
	f := newFixture(t)

	draft, err := f.notes.Create(f.ownerCtx(), &domain.CreateNoteRequest{Title: "Secret Draft", Content: "x"})
	require.NoError(t, err)
	published := f.publish(t, "Public Note")

	t.Run("drafts are hidden from readers", func(t *testing.T) {
		_, err := f.notes.Get(context.Background(), draft.Slug)
		assert.ErrorIs(t, err, service.ErrNoteNotFound)

		_, err = f.notes.Get(f.visitorCtx(), draft.ID.String())
		assert.ErrorIs(t, err, service.ErrNoteNotFound)

		got, err := f.notes.Get(f.ownerCtx(), draft.Slug)
		require.NoError(t, err)
		assert.Equal(t, draft.ID, got.ID)
	})

	t.Run("list only shows published notes to readers", func(t *testing.T) {
		page, err := f.notes.List(context.Background(), domain.NoteFilter{Status: domain.NoteStatusDraft})
		require.NoError(t, err)
		notes := page.Data.([]domain.NoteSummaryDTO)
		require.Len(t, notes, 1)
		assert.Equal(t, published.ID, notes[0].ID)

		page, err = f.notes.List(f.ownerCtx(), domain.NoteFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)

		page, err = f.notes.List(f.ownerCtx(), domain.NoteFilter{Status: domain.NoteStatusDraft})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("views are counted for readers only", func(t *testing.T) {
		got, err := f.notes.Get(context.Background(), published.Slug)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ViewCount)

		got, err = f.notes.Get(f.ownerCtx(), published.Slug)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ViewCount)
	})

	t.Run("list filters", func(t *testing.T) {
		_, err := f.notes.List(context.Background(), domain.NoteFilter{Sort: "random"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = f.notes.List(f.ownerCtx(), domain.NoteFilter{Status: "archived"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		page, err := f.notes.List(context.Background(), domain.NoteFilter{Category: "no-such-category"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), page.Total)
		assert.Empty(t, page.Data.([]domain.NoteSummaryDTO))
	})
}

func TestNoteService_Update(t *testing.T) {
	f := newFixture(t)
	note, err := f.notes.Create(f.ownerCtx(), &domain.CreateNoteRequest{
		Title:   "Original Title",
		Content: "x",
		Tags:    []string{"one", "two"},
	})
	require.NoError(t, err)

	t.Run("same title keeps slug", func(t *testing.T) {
		updated, err := f.notes.Update(f.ownerCtx(), note.ID, &domain.UpdateNoteRequest{
			Title:   "Original Title",
			Content: "changed",
			Tags:    []string{"two"},
		})
		require.NoError(t, err)
		assert.Equal(t, "original-title", updated.Slug)
		assert.Equal(t, "changed", updated.Content)
		require.Len(t, updated.Tags, 1)
		assert.Equal(t, "two", updated.Tags[0].Slug)
		assert.Equal(t, domain.NoteStatusDraft, updated.Status)
	})

	t.Run("new title re-slugs", func(t *testing.T) {
		f.publish(t, "Taken Title")
		updated, err := f.notes.Update(f.ownerCtx(), note.ID, &domain.UpdateNoteRequest{
			Title:   "Taken Title",
			Content: "changed",
		})
		require.NoError(t, err)
		assert.Equal(t, "taken-title-2", updated.Slug)
		assert.Empty(t, updated.Tags)
	})

	t.Run("missing note", func(t *testing.T) {
		_, err := f.notes.Update(f.ownerCtx(), uuid.New(), &domain.UpdateNoteRequest{Title: "t", Content: "x"})
		assert.ErrorIs(t, err, service.ErrNoteNotFound)
	})
}

func TestNoteService_PublishLifecycle(t *testing.T) {
	f := newFixture(t)
	note, err := f.notes.Create(f.ownerCtx(), &domain.CreateNoteRequest{Title: "Lifecycle", Content: "x"})
	require.NoError(t, err)

	published, err := f.notes.Publish(f.ownerCtx(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NoteStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	firstPublished := *published.PublishedAt

	unpublished, err := f.notes.Unpublish(f.ownerCtx(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NoteStatusDraft, unpublished.Status)
	require.NotNil(t, unpublished.PublishedAt)

	republished, err := f.notes.Publish(f.ownerCtx(), note.ID)
	require.NoError(t, err)
	assert.True(t, firstPublished.Equal(*republished.PublishedAt))

	_, err = f.notes.Publish(f.visitorCtx(), note.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	archive, err := f.notes.Archive(context.Background())
	require.NoError(t, err)
	require.Len(t, archive, 1)
	assert.Equal(t, 1, archive[0].Count)
}

func TestNoteService_Delete(t *testing.T) {
	f := newFixture(t)
	note := f.publish(t, "Doomed")

	_, err := f.comments.Create(f.visitorCtx(), note.Slug, &domain.CreateCommentRequest{Content: "nice"})
	require.NoError(t, err)
	_, err = f.likes.Like(context.Background(), note.Slug, "203.0.113.7", "test")
	require.NoError(t, err)
	attachment, err := f.attachments.Upload(f.ownerCtx(), note.Slug, "notes.txt", strings.NewReader("plain text body"))
	require.NoError(t, err)

	path := storagePathOf(t, f, attachment.ID)

	t.Run("visitor cannot delete", func(t *testing.T) {
		assert.ErrorIs(t, f.notes.Delete(f.visitorCtx(), note.ID), service.ErrForbidden)
	})

	t.Run("owner delete cascades", func(t *testing.T) {
		require.NoError(t, f.notes.Delete(f.ownerCtx(), note.ID))

		_, err := f.notes.Get(f.ownerCtx(), note.ID.String())
		assert.ErrorIs(t, err, service.ErrNoteNotFound)

		var comments, likes, attachments int64
		f.db.Model(&domain.Comment{}).Where("note_id = ?", note.ID).Count(&comments)
		f.db.Model(&domain.Like{}).Where("note_id = ?", note.ID).Count(&likes)
		f.db.Model(&domain.Attachment{}).Where("note_id = ?", note.ID).Count(&attachments)
		assert.Zero(t, comments)
		assert.Zero(t, likes)
		assert.Zero(t, attachments)

		_, err = f.store.Open(context.Background(), path)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		assert.ErrorIs(t, f.notes.Delete(f.ownerCtx(), note.ID), service.ErrNoteNotFound)
	})
}

func storagePathOf(t *testing.T, f *fixture, id uuid.UUID) string {
	t.Helper()
	var a domain.Attachment
	require.NoError(t, f.db.First(&a, "id = ?", id).Error)
	return a.StoragePath
}
