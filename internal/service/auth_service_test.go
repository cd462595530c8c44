package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"github.com/inkwell-notes/notes-api/internal/service"
	"github.com/inkwell-notes/notes-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*service.AuthService, *auth.TokenManager) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	tokens := auth.NewTokenManager(&config.JWTConfig{
		Secret: "auth-service-test-secret-long-enough",
		Issuer: "notes-test",
		TTL:    3600,
	})
	svc := service.NewAuthService(repository.NewUserRepository(db), auth.NewPasswordHasher(bcrypt.MinCost), tokens, zap.NewNop())
	return svc, tokens
}

func register(t *testing.T, svc *service.AuthService, username string) *domain.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return resp
}

func TestAuthService_Register(t *testing.T) {
	svc, tokens := newAuthService(t)

	t.Run("first account becomes owner", func(t *testing.T) {
		resp := register(t, svc, "first")
		assert.Equal(t, domain.RoleOwner, resp.User.Role)
		assert.Equal(t, "Bearer", resp.TokenType)

		claims, err := tokens.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, claims.UserID)
		assert.Equal(t, domain.RoleOwner, claims.Role)
	})

	t.Run("later accounts are visitors", func(t *testing.T) {
		resp := register(t, svc, "second")
		assert.Equal(t, domain.RoleVisitor, resp.User.Role)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.Register(context.Background(), &domain.RegisterRequest{
			Username: "FIRST",
			Email:    "other@example.com",
			Password: "correct horse battery",
		})
		assert.ErrorIs(t, err, service.ErrUsernameTaken)
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("duplicate email ignores case", func(t *testing.T) {
		_, err := svc.Register(context.Background(), &domain.RegisterRequest{
			Username: "third",
			Email:    "First@Example.com",
			Password: "correct horse battery",
		})
		assert.ErrorIs(t, err, service.ErrEmailTaken)
	})

	t.Run("invalid username", func(t *testing.T) {
		_, err := svc.Register(context.Background(), &domain.RegisterRequest{
			Username: "no spaces",
			Email:    "spaces@example.com",
			Password: "correct horse battery",
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestAuthService_PasswordByteLimit(t *testing.T) {
	svc, _ := newAuthService(t)
	// 40 characters, 80 bytes
	accented := strings.Repeat("é", 40)

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Username: "accented",
		Email:    "accented@example.com",
		Password: accented,
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Contains(t, service.Message(err), "72 bytes")

	_, err = svc.SeedOwner(context.Background(), "accented", "accented@example.com", accented)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	resp, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Username: "multibyte",
		Email:    "multibyte@example.com",
		Password: strings.Repeat("é", 36),
	})
	require.NoError(t, err)

	ctx := auth.WithUserContext(context.Background(), &auth.UserContext{UserID: resp.User.ID, Username: "multibyte", Role: resp.User.Role})
	err = svc.ChangePassword(ctx, &domain.ChangePasswordRequest{CurrentPassword: strings.Repeat("é", 36), NewPassword: accented})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := newAuthService(t)
	registered := register(t, svc, "alice")

	t.Run("by username", func(t *testing.T) {
		resp, err := svc.Login(context.Background(), &domain.LoginRequest{Identifier: "alice", Password: "correct horse battery"})
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, resp.User.ID)
		assert.NotNil(t, resp.User.LastLoginAt)
	})

	t.Run("by email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), &domain.LoginRequest{Identifier: "ALICE@example.com", Password: "correct horse battery"})
		require.NoError(t, err)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		_, errWrong := svc.Login(context.Background(), &domain.LoginRequest{Identifier: "alice", Password: "nope nope nope"})
		_, errUnknown := svc.Login(context.Background(), &domain.LoginRequest{Identifier: "bob", Password: "nope nope nope"})

		assert.ErrorIs(t, errWrong, service.ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknown, service.ErrInvalidCredentials)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})
}

func TestAuthService_Profile(t *testing.T) {
	svc, tokens := newAuthService(t)
	resp := register(t, svc, "alice")

	caller, err := tokens.ValidateToken(resp.Token)
	require.NoError(t, err)
	ctx := auth.WithUserContext(context.Background(), caller)

	t.Run("me", func(t *testing.T) {
		me, err := svc.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, "alice", me.Username)
	})

	t.Run("me requires authentication", func(t *testing.T) {
		_, err := svc.Me(context.Background())
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("update profile", func(t *testing.T) {
		me, err := svc.UpdateProfile(ctx, &domain.UpdateProfileRequest{DisplayName: "  Alice A. ", Bio: "writes things"})
		require.NoError(t, err)
		assert.Equal(t, "Alice A.", me.DisplayName)
		assert.Equal(t, "writes things", me.Bio)
	})

	t.Run("system identity has no profile", func(t *testing.T) {
		_, err := svc.UpdateProfile(systemCtx(), &domain.UpdateProfileRequest{DisplayName: "x"})
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("change password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, &domain.ChangePasswordRequest{CurrentPassword: "wrong password", NewPassword: "new password 123"})
		assert.ErrorIs(t, err, service.ErrWrongPassword)

		require.NoError(t, svc.ChangePassword(ctx, &domain.ChangePasswordRequest{
			CurrentPassword: "correct horse battery",
			NewPassword:     "new password 123",
		}))

		_, err = svc.Login(context.Background(), &domain.LoginRequest{Identifier: "alice", Password: "correct horse battery"})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
		_, err = svc.Login(context.Background(), &domain.LoginRequest{Identifier: "alice", Password: "new password 123"})
		assert.NoError(t, err)
	})
}

func TestAuthService_ListUsers(t *testing.T) {
	f := newFixture(t)

	page, err := f.auth.ListUsers(f.ownerCtx(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Data.([]domain.UserDTO), 2)

	_, err = f.auth.ListUsers(f.visitorCtx(), 1, 10)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.auth.ListUsers(context.Background(), 1, 10)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthService_SeedOwner(t *testing.T) {
	svc, _ := newAuthService(t)
	register(t, svc, "first")

	owner, err := svc.SeedOwner(context.Background(), "second_owner", "Owner2@Example.com", "long enough password")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, owner.Role)
	assert.Equal(t, "owner2@example.com", owner.Email)

	_, err = svc.SeedOwner(context.Background(), "short", "s@example.com", "short")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
