package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/http/handler"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"github.com/inkwell-notes/notes-api/internal/service"
	"github.com/inkwell-notes/notes-api/internal/storage"
	"github.com/inkwell-notes/notes-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testMaxUploadBytes = 2048

type handlers struct {
	db      *gorm.DB
	owner   *domain.User
	visitor *domain.User

	auth        *handler.AuthHandler
	notes       *handler.NoteHandler
	comments    *handler.CommentHandler
	likes       *handler.LikeHandler
	attachments *handler.AttachmentHandler
	categories  *handler.CategoryHandler
	tags        *handler.TagHandler
	stats       *handler.StatsHandler
}

func setupHandlers(t *testing.T) *handlers {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	inv := cache.NewInvalidator(cache.NewMemoryCache("test"), logger)

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
		Secret: "handler-test-secret-long-enough-for-hs256",
		Issuer: "notes-test",
		TTL:    3600,
	})

	tagService := service.NewTagService(tagRepo, inv, logger)
	noteService := service.NewNoteService(noteRepo, users, categoryRepo, attachmentRepo, tagService, store, inv, logger)

	return &handlers{
		db:      db,
		owner:   testutil.CreateTestUser(t, db, "owner", domain.RoleOwner),
		visitor: testutil.CreateTestUser(t, db, "visitor", domain.RoleVisitor),

		auth:        handler.NewAuthHandler(service.NewAuthService(users, auth.NewPasswordHasher(bcrypt.MinCost), tokens, logger), logger),
		notes:       handler.NewNoteHandler(noteService, logger),
		comments:    handler.NewCommentHandler(service.NewCommentService(commentRepo, noteRepo, inv, logger), logger),
		likes:       handler.NewLikeHandler(service.NewLikeService(likeRepo, noteRepo, inv, logger), logger),
		attachments: handler.NewAttachmentHandler(service.NewAttachmentService(attachmentRepo, noteRepo, store, testMaxUploadBytes, inv, logger), logger),
		categories:  handler.NewCategoryHandler(service.NewCategoryService(categoryRepo, inv, logger), logger),
		tags:        handler.NewTagHandler(tagService, logger),
		stats:       handler.NewStatsHandler(service.NewStatsService(noteRepo, commentRepo, likeRepo, categoryRepo, tagRepo, users, inv, logger), logger),
	}
}

// withChiContext adds Chi route context with the given URL parameters
func withChiContext(ctx context.Context, params map[string]string) context.Context {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

func asUser(user *domain.User) context.Context {
	return auth.WithUserContext(context.Background(), testutil.UserContextFor(user))
}

// newRequest builds a request with a JSON body (when body is not nil), the caller
// identity in ctx and the given path parameters
func newRequest(t *testing.T, ctx context.Context, method, target string, body interface{}, params map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return req.WithContext(withChiContext(ctx, params))
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// multipartBody wraps content in a form with a single "file" part
func multipartBody(t *testing.T, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// createNote creates a note through the handler as the owner
func (h *handlers) createNote(t *testing.T, title string, status domain.NoteStatus) domain.NoteDTO {
	t.Helper()
	req := newRequest(t, asUser(h.owner), http.MethodPost, "/api/v1/notes", domain.CreateNoteRequest{
		Title:   title,
		Content: "Body of " + title,
		Status:  status,
	}, nil)
	rr := serve(h.notes.Create, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[domain.NoteDTO](t, rr)
}
