package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	Username    string
	DisplayName string
	Email       string
	Role        domain.UserRole
	// System is set for API-key authenticated automation
	System bool
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRole) bool {
	return u.Role == role
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsOwner checks if user manages the site
func (u *UserContext) IsOwner() bool {
	return u.Role == domain.RoleOwner
}

// HasPermission checks the role's default permission table
func (u *UserContext) HasPermission(permission domain.PermissionType) bool {
	return domain.RoleHasPermission(u.Role, permission)
}

// IsOwnerContext reports whether the request is made by an owner
func IsOwnerContext(ctx context.Context) bool {
	user, ok := FromContext(ctx)
	return ok && user.IsOwner()
}

// CanInContext checks a permission for the caller, falling back to anonymous grants
func CanInContext(ctx context.Context, permission domain.PermissionType) bool {
	if user, ok := FromContext(ctx); ok {
		return user.HasPermission(permission)
	}
	for _, p := range domain.AnonymousPermissions {
		if p == permission {
			return true
		}
	}
	return false
}
