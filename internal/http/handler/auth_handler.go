package handler

import (
	"net/http"

	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register an account
// @Description Creates a visitor account. The first account registered becomes the owner.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.RegisterRequest true "Account details"
// @Success 201 {object} domain.AuthResponse
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Username or email taken"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to register")
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Login godoc
// @Summary Log in
// @Description Exchanges a username or email and password for a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.AuthResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 429 {object} domain.APIError
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Me godoc
// @Summary Get current user
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.UserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.authService.Me(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get current user")
		return
	}
	respondJSON(w, http.StatusOK, me)
}

// UpdateMe godoc
// @Summary Update profile
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.UpdateProfileRequest true "Profile"
// @Success 200 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /auth/me [put]
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	me, err := h.authService.UpdateProfile(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, me)
}

// ChangePassword godoc
// @Summary Change password
// @Tags Auth
// @Accept json
// @Param request body domain.ChangePasswordRequest true "Passwords"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), &req); err != nil {
		respondServiceError(w, h.logger, err, "Failed to change password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers godoc
// @Summary List users
// @Description Registered accounts, oldest first (owner only)
// @Tags Users
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 100)" default(10)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.UserDTO}
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /users [get]
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := h.authService.ListUsers(r.Context(), page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
