package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID so inserts work on databases without gen_random_uuid()
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// UserRole is the coarse role a user holds on the platform
type UserRole string

const (
	// RoleOwner authors notes and manages the site
	RoleOwner UserRole = "owner"
	// RoleVisitor is a registered reader who may comment
	RoleVisitor UserRole = "visitor"
)

// IsValid reports whether r is a known role
func (r UserRole) IsValid() bool {
	return r == RoleOwner || r == RoleVisitor
}

// User is a registered account
type User struct {
	BaseModel
	Username     string     `gorm:"type:varchar(32);not null;uniqueIndex"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string     `gorm:"type:varchar(255);not null;column:password_hash"`
	DisplayName  string     `gorm:"type:varchar(100)"`
	Bio          string     `gorm:"type:text"`
	AvatarURL    string     `gorm:"type:varchar(500);column:avatar_url"`
	Role         UserRole   `gorm:"type:varchar(20);not null;default:'visitor'"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

// Category groups notes; a note belongs to at most one category
type Category struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Slug        string `gorm:"type:varchar(120);not null;uniqueIndex"`
	Description string `gorm:"type:text"`
	SortOrder   int    `gorm:"not null;default:0;column:sort_order"`
}

// Tag labels notes; many-to-many through note_tags
type Tag struct {
	BaseModel
	Name string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Slug string `gorm:"type:varchar(60);not null;uniqueIndex"`
}

// NoteStatus is the publication state of a note
type NoteStatus string

const (
	NoteStatusDraft     NoteStatus = "draft"
	NoteStatusPublished NoteStatus = "published"
)

// IsValid reports whether s is a known status
func (s NoteStatus) IsValid() bool {
	return s == NoteStatusDraft || s == NoteStatusPublished
}

// Note is an authored post. Counters are denormalized and periodically reconciled.
type Note struct {
	BaseModel
	Title        string         `gorm:"type:varchar(200);not null"`
	Slug         string         `gorm:"type:varchar(220);not null;uniqueIndex"`
	Summary      string         `gorm:"type:varchar(500)"`
	Content      string         `gorm:"type:text;not null"`
	CoverImage   string         `gorm:"type:varchar(500);column:cover_image"`
	Status       NoteStatus     `gorm:"type:varchar(20);not null;default:'draft';index"`
	AuthorID     uuid.UUID      `gorm:"type:uuid;not null;index"`
	Author       *User          `gorm:"foreignKey:AuthorID"`
	CategoryID   *uuid.UUID     `gorm:"type:uuid;index"`
	Category     *Category      `gorm:"foreignKey:CategoryID"`
	Tags         []Tag          `gorm:"many2many:note_tags;"`
	ViewCount    int64          `gorm:"not null;default:0"`
	LikeCount    int64          `gorm:"not null;default:0"`
	CommentCount int64          `gorm:"not null;default:0"`
	PublishedAt  *time.Time     `gorm:"index"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// IsPublished reports whether the note is publicly visible
func (n *Note) IsPublished() bool {
	return n.Status == NoteStatusPublished
}

// Comment is a visitor comment on a note. Replies are one level deep.
type Comment struct {
	BaseModel
	NoteID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	AuthorID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Author   *User      `gorm:"foreignKey:AuthorID"`
	ParentID *uuid.UUID `gorm:"type:uuid;index"`
	Content  string     `gorm:"type:text;not null"`
}

// Like records one anonymous like per (note, client IP)
type Like struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	NoteID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_note_ip"`
	IPAddress string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_likes_note_ip;column:ip_address"`
	UserAgent string    `gorm:"type:varchar(500);column:user_agent"`
	CreatedAt time.Time `gorm:"not null"`
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Attachment is a file uploaded to a note
type Attachment struct {
	BaseModel
	NoteID      uuid.UUID `gorm:"type:uuid;not null;index"`
	FileName    string    `gorm:"type:varchar(255);not null;column:file_name"`
	ContentType string    `gorm:"type:varchar(100);not null;column:content_type"`
	Size        int64     `gorm:"not null"`
	StoragePath string    `gorm:"type:varchar(500);not null;column:storage_path"`
}
