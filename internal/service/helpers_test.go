package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"github.com/inkwell-notes/notes-api/internal/service"
	"github.com/inkwell-notes/notes-api/internal/storage"
	"github.com/inkwell-notes/notes-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// recordingInvalidator remembers every pattern it was asked to invalidate
type recordingInvalidator struct {
	mu       sync.Mutex
	patterns []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, patterns ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, patterns...)
}

func (r *recordingInvalidator) Seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.patterns...)
}

func (r *recordingInvalidator) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = nil
}

type fixture struct {
	db    *gorm.DB
	cache *recordingInvalidator
	store storage.Storage

	owner   *domain.User
	visitor *domain.User

	auth        *service.AuthService
	categories  *service.CategoryService
	tags        *service.TagService
	notes       *service.NoteService
	comments    *service.CommentService
	likes       *service.LikeService
	attachments *service.AttachmentService
	stats       *service.StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	inv := &recordingInvalidator{}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	tokens := auth.NewTokenManager(&config.JWTConfig{
		Secret: "service-test-secret-long-enough-for-hs256",
		Issuer: "notes-test",
		TTL:    3600,
	})

	tags := service.NewTagService(tagRepo, inv, logger)

	f := &fixture{
		db:          db,
		cache:       inv,
		store:       store,
		owner:       testutil.CreateTestUser(t, db, "owner", domain.RoleOwner),
		visitor:     testutil.CreateTestUser(t, db, "visitor", domain.RoleVisitor),
		auth:        service.NewAuthService(users, auth.NewPasswordHasher(bcrypt.MinCost), tokens, logger),
		categories:  service.NewCategoryService(categoryRepo, inv, logger),
		tags:        tags,
		notes:       service.NewNoteService(noteRepo, users, categoryRepo, attachmentRepo, tags, store, inv, logger),
		comments:    service.NewCommentService(commentRepo, noteRepo, inv, logger),
		likes:       service.NewLikeService(likeRepo, noteRepo, inv, logger),
		attachments: service.NewAttachmentService(attachmentRepo, noteRepo, store, 1024, inv, logger),
		stats:       service.NewStatsService(noteRepo, commentRepo, likeRepo, categoryRepo, tagRepo, users, inv, logger),
	}
	return f
}

func (f *fixture) ownerCtx() context.Context {
	return testutil.OwnerContext(f.owner)
}

func (f *fixture) visitorCtx() context.Context {
	return testutil.OwnerContext(f.visitor)
}

func systemCtx() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		Username: "system",
		Role:     domain.RoleOwner,
		System:   true,
	})
}

// publish creates a published note through the service
func (f *fixture) publish(t *testing.T, title string) *domain.NoteDTO {
	t.Helper()
	note, err := f.notes.Create(f.ownerCtx(), &domain.CreateNoteRequest{
		Title:   title,
		Content: "Body of " + title,
		Status:  domain.NoteStatusPublished,
	})
	require.NoError(t, err)
	return note
}
