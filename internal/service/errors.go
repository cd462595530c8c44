package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns to a handler wraps exactly one of these.
var (
	// ErrNotFound is returned when a resource is not found or not visible to the caller
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when the caller lacks permission for an action
	ErrForbidden = errors.New("permission denied")

	// ErrUnauthorized is returned when the caller is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrTooLarge is returned when an upload exceeds the configured size
	ErrTooLarge = errors.New("payload too large")
)

// Specific errors, each classified under a kind above
var (
	ErrUserNotFound       = kindError(ErrNotFound, "user not found")
	ErrNoteNotFound       = kindError(ErrNotFound, "note not found")
	ErrCategoryNotFound   = kindError(ErrNotFound, "category not found")
	ErrTagNotFound        = kindError(ErrNotFound, "tag not found")
	ErrCommentNotFound    = kindError(ErrNotFound, "comment not found")
	ErrAttachmentNotFound = kindError(ErrNotFound, "attachment not found")
	ErrLikeNotFound       = kindError(ErrNotFound, "like not found")

	ErrInvalidCredentials = kindError(ErrUnauthorized, "invalid username or password")
	ErrWrongPassword      = kindError(ErrInvalidInput, "current password is incorrect")

	ErrUsernameTaken  = kindError(ErrConflict, "username is already taken")
	ErrEmailTaken     = kindError(ErrConflict, "email is already registered")
	ErrCategoryExists = kindError(ErrConflict, "a category with this name already exists")
	ErrTagExists      = kindError(ErrConflict, "a tag with this name already exists")
	ErrAlreadyLiked   = kindError(ErrConflict, "note already liked from this address")

	ErrInvalidParent          = kindError(ErrInvalidInput, "parent comment does not belong to this note")
	ErrUnsupportedContentType = kindError(ErrInvalidInput, "file type is not allowed")
	ErrFileTooLarge           = kindError(ErrTooLarge, "file exceeds the maximum upload size")
)

// classifiedError carries a caller-facing message and the kind it belongs to
type classifiedError struct {
	kind error
	msg  string
}

func kindError(kind error, msg string) error {
	return &classifiedError{kind: kind, msg: msg}
}

func (e *classifiedError) Error() string { return e.msg }

func (e *classifiedError) Unwrap() error { return e.kind }

// invalidInput builds an ErrInvalidInput with a specific message
func invalidInput(format string, args ...interface{}) error {
	return kindError(ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Message returns the caller-facing message of a classified error, or "" for internal errors
func Message(err error) string {
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.msg
	}
	return ""
}
