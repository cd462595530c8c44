package domain

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// NewPaginatedResponse computes totalPages from total and pageSize
func NewPaginatedResponse(data interface{}, total int64, page, pageSize int) *PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Users & auth

type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Bio         string     `json:"bio,omitempty"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Role        UserRole   `json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// AuthorDTO is the public view of a user attached to notes and comments
type AuthorDTO struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserDTO   `json:"user"`
}

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=32"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"displayName" validate:"max=100"`
}

type LoginRequest struct {
	// Identifier is a username or an email address
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password" validate:"required,max=72"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"max=100"`
	Bio         string `json:"bio" validate:"max=1000"`
	AvatarURL   string `json:"avatarUrl" validate:"omitempty,url,max=500"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=72"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// Taxonomy

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	NoteCount   int64     `json:"noteCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CategoryRefDTO is the compact category embedded in notes
type CategoryRefDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	SortOrder   int    `json:"sortOrder" validate:"gte=0,lte=10000"`
}

type UpdateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	SortOrder   int    `json:"sortOrder" validate:"gte=0,lte=10000"`
}

type TagDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	NoteCount int64     `json:"noteCount"`
}

// TagRefDTO is the compact tag embedded in notes
type TagRefDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type CreateTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type UpdateTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// Notes

// NoteSummaryDTO is the list representation of a note (no content body)
type NoteSummaryDTO struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Summary      string          `json:"summary,omitempty"`
	CoverImage   string          `json:"coverImage,omitempty"`
	Status       NoteStatus      `json:"status"`
	Author       *AuthorDTO      `json:"author,omitempty"`
	Category     *CategoryRefDTO `json:"category,omitempty"`
	Tags         []TagRefDTO     `json:"tags"`
	ViewCount    int64           `json:"viewCount"`
	LikeCount    int64           `json:"likeCount"`
	CommentCount int64           `json:"commentCount"`
	PublishedAt  *time.Time      `json:"publishedAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NoteDTO is the full representation of a note
type NoteDTO struct {
	NoteSummaryDTO
	Content string `json:"content"`
}

type CreateNoteRequest struct {
	Title      string     `json:"title" validate:"required,max=200"`
	Summary    string     `json:"summary" validate:"max=500"`
	Content    string     `json:"content" validate:"required"`
	CoverImage string     `json:"coverImage" validate:"omitempty,url,max=500"`
	CategoryID *uuid.UUID `json:"categoryId"`
	Tags       []string   `json:"tags" validate:"max=10,dive,max=50"`
	Status     NoteStatus `json:"status" validate:"omitempty,oneof=draft published"`
}

type UpdateNoteRequest struct {
	Title      string     `json:"title" validate:"required,max=200"`
	Summary    string     `json:"summary" validate:"max=500"`
	Content    string     `json:"content" validate:"required"`
	CoverImage string     `json:"coverImage" validate:"omitempty,url,max=500"`
	CategoryID *uuid.UUID `json:"categoryId"`
	Tags       []string   `json:"tags" validate:"max=10,dive,max=50"`
	Status     NoteStatus `json:"status" validate:"omitempty,oneof=draft published"`
}

// NoteSort orders note listings
type NoteSort string

const (
	NoteSortNewest  NoteSort = "newest"
	NoteSortOldest  NoteSort = "oldest"
	NoteSortPopular NoteSort = "popular"
	NoteSortViews   NoteSort = "views"
)

// NoteFilter narrows a note listing
type NoteFilter struct {
	Page       int
	PageSize   int
	CategoryID *uuid.UUID
	Category   string // slug, resolved by the service
	Tag        string // slug
	Search     string
	Status     NoteStatus
	Sort       NoteSort
}

// ArchiveEntryDTO counts published notes in a month
type ArchiveEntryDTO struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

// Comments

type CommentDTO struct {
	ID        uuid.UUID    `json:"id"`
	NoteID    uuid.UUID    `json:"noteId"`
	ParentID  *uuid.UUID   `json:"parentId,omitempty"`
	Content   string       `json:"content"`
	Author    *AuthorDTO   `json:"author,omitempty"`
	Replies   []CommentDTO `json:"replies,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type CreateCommentRequest struct {
	Content  string     `json:"content" validate:"required,max=2000"`
	ParentID *uuid.UUID `json:"parentId"`
}

// Likes

type LikeStatusDTO struct {
	NoteID    uuid.UUID `json:"noteId"`
	Liked     bool      `json:"liked"`
	LikeCount int64     `json:"likeCount"`
}

// Attachments

type AttachmentDTO struct {
	ID          uuid.UUID `json:"id"`
	NoteID      uuid.UUID `json:"noteId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Stats

type StatsDTO struct {
	PublishedNotes int64            `json:"publishedNotes"`
	DraftNotes     int64            `json:"draftNotes"`
	Comments       int64            `json:"comments"`
	Likes          int64            `json:"likes"`
	Views          int64            `json:"views"`
	Categories     int64            `json:"categories"`
	Tags           int64            `json:"tags"`
	Users          int64            `json:"users"`
	TopNotes       []NoteSummaryDTO `json:"topNotes"`
	RecentComments []CommentDTO     `json:"recentComments"`
}

// NoteEngagement is one row of the engagement snapshot exported to reporting
type NoteEngagement struct {
	NoteID   uuid.UUID
	Title    string
	Views    int64
	Likes    int64
	Comments int64
}
