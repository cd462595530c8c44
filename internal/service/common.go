package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxSlugAttempts = 100
)

// CacheInvalidator removes cached responses matching glob patterns
type CacheInvalidator interface {
	Invalidate(ctx context.Context, patterns ...string)
}

// NormalizePage clamps page to >= 1 and pageSize to 1..100, defaulting to 10
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// Slugify lowercases s and collapses every run of non-alphanumerics into one '-'
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// uniqueSlug appends -2, -3, ... to base until exists reports the slug free
func uniqueSlug(ctx context.Context, base string, exists func(context.Context, string) (bool, error)) (string, error) {
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}

// requirePermission checks the caller's permission, distinguishing anonymous from forbidden
func requirePermission(ctx context.Context, permission domain.PermissionType) (*auth.UserContext, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		if auth.CanInContext(ctx, permission) {
			return nil, nil
		}
		return nil, ErrUnauthorized
	}
	if !user.HasPermission(permission) {
		return nil, fmt.Errorf("%w: requires %s", ErrForbidden, permission)
	}
	return user, nil
}

// parseIDOrSlug splits a path parameter into a UUID or a slug
func parseIDOrSlug(idOrSlug string) (uuid.UUID, string) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return id, ""
	}
	return uuid.Nil, strings.ToLower(strings.TrimSpace(idOrSlug))
}
