package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/mapper"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// AuthService registers users, issues tokens and manages profiles
type AuthService struct {
	users  *repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	logger *zap.Logger
	now    func() time.Time

	// dummyHash is compared against when a login names an unknown user,
	// so both paths spend one bcrypt comparison
	dummyHash string
}

func NewAuthService(users *repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	dummy, err := hasher.Hash("inkwell-timing-equalizer")
	if err != nil {
		logger.Warn("failed to prepare dummy password hash", zap.Error(err))
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Register creates a visitor account, or the owner account when it is the first one
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !usernamePattern.MatchString(username) {
		return nil, invalidInput("username must be 3-32 letters, digits or underscores")
	}

	user, err := s.createUser(ctx, username, email, req.Password, strings.TrimSpace(req.DisplayName), domain.RoleVisitor, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)

	return s.issue(user)
}

// SeedOwner creates an owner account directly, bypassing the first-user rule
func (s *AuthService) SeedOwner(ctx context.Context, username, email, password string) (*domain.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, invalidInput("username must be 3-32 letters, digits or underscores")
	}
	user, err := s.createUser(ctx, username, strings.ToLower(strings.TrimSpace(email)), password, username, domain.RoleOwner, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("owner seeded", zap.String("user_id", user.ID.String()), zap.String("username", username))
	return user, nil
}

// checkNewPassword enforces the length rules on a password about to be hashed
func checkNewPassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return invalidInput("password must be at least 8 characters")
	}
	if len(password) > auth.MaxPasswordBytes {
		return invalidInput("password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return nil
}

func (s *AuthService) createUser(ctx context.Context, username, email, password, displayName string, role domain.UserRole, bootstrap bool) (*domain.User, error) {
	if err := checkNewPassword(password); err != nil {
		return nil, err
	}

	usernameTaken, emailTaken, err := s.users.Taken(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if usernameTaken {
		return nil, ErrUsernameTaken
	}
	if emailTaken {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         role,
	}

	if bootstrap {
		err = s.users.CreateFirstAsOwner(ctx, user)
	} else {
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, kindError(ErrConflict, "username or email is already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and issues a token. Unknown users and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	user, err := s.users.GetByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.dummyHash != "" {
				_ = s.hasher.Compare(s.dummyHash, req.Password)
			}
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed", zap.String("user_id", user.ID.String()))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*domain.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      mapper.ToUserDTO(user),
	}, nil
}

// Me returns the caller's account
func (s *AuthService) Me(ctx context.Context) (*domain.UserDTO, error) {
	caller, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if caller.System {
		return &domain.UserDTO{
			ID:          caller.UserID,
			Username:    caller.Username,
			Email:       caller.Email,
			DisplayName: caller.DisplayName,
			Role:        caller.Role,
		}, nil
	}

	user, err := s.currentUser(ctx, caller)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// UpdateProfile changes display name, bio and avatar of the caller
func (s *AuthService) UpdateProfile(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.UserDTO, error) {
	caller, err := requirePermission(ctx, domain.PermissionProfileWrite)
	if err != nil {
		return nil, err
	}
	if caller == nil || caller.System {
		return nil, kindError(ErrForbidden, "the API key identity has no profile")
	}

	user, err := s.currentUser(ctx, caller)
	if err != nil {
		return nil, err
	}

	user.DisplayName = strings.TrimSpace(req.DisplayName)
	user.Bio = strings.TrimSpace(req.Bio)
	user.AvatarURL = strings.TrimSpace(req.AvatarURL)

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// ChangePassword replaces the caller's password after verifying the current one
func (s *AuthService) ChangePassword(ctx context.Context, req *domain.ChangePasswordRequest) error {
	caller, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if caller.System {
		return kindError(ErrForbidden, "the API key identity has no password")
	}

	if err := checkNewPassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.currentUser(ctx, caller)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return ErrWrongPassword
		}
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", zap.String("user_id", user.ID.String()))
	return nil
}

// ListUsers returns registered accounts (owner only)
func (s *AuthService) ListUsers(ctx context.Context, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := requirePermission(ctx, domain.PermissionUsersRead); err != nil {
		return nil, err
	}
	page, pageSize = NormalizePage(page, pageSize)

	users, total, err := s.users.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToUserDTO(&users[i])
	}
	return domain.NewPaginatedResponse(dtos, total, page, pageSize), nil
}

func (s *AuthService) currentUser(ctx context.Context, caller *auth.UserContext) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
