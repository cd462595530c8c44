package mapper

import (
	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/domain"
)

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: displayName(user),
		Bio:         user.Bio,
		AvatarURL:   user.AvatarURL,
		Role:        user.Role,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// ToAuthorDTO returns the public view of a user, or nil when the relation is not loaded
func ToAuthorDTO(user *domain.User) *domain.AuthorDTO {
	if user == nil {
		return nil
	}
	return &domain.AuthorDTO{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: displayName(user),
		AvatarURL:   user.AvatarURL,
	}
}

func displayName(user *domain.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Username
}

// ToCategoryDTO converts Category to CategoryDTO with its published note count
func ToCategoryDTO(category *domain.Category, noteCount int64) domain.CategoryDTO {
	return domain.CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Slug:        category.Slug,
		Description: category.Description,
		SortOrder:   category.SortOrder,
		NoteCount:   noteCount,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}

// ToTagDTO converts Tag to TagDTO with its published note count
func ToTagDTO(tag *domain.Tag, noteCount int64) domain.TagDTO {
	return domain.TagDTO{
		ID:        tag.ID,
		Name:      tag.Name,
		Slug:      tag.Slug,
		NoteCount: noteCount,
	}
}

// ToNoteSummaryDTO converts Note to its list representation
func ToNoteSummaryDTO(note *domain.Note) domain.NoteSummaryDTO {
	dto := domain.NoteSummaryDTO{
		ID:           note.ID,
		Title:        note.Title,
		Slug:         note.Slug,
		Summary:      note.Summary,
		CoverImage:   note.CoverImage,
		Status:       note.Status,
		Author:       ToAuthorDTO(note.Author),
		Tags:         make([]domain.TagRefDTO, 0, len(note.Tags)),
		ViewCount:    note.ViewCount,
		LikeCount:    note.LikeCount,
		CommentCount: note.CommentCount,
		PublishedAt:  note.PublishedAt,
		CreatedAt:    note.CreatedAt,
		UpdatedAt:    note.UpdatedAt,
	}

	if note.Category != nil {
		dto.Category = &domain.CategoryRefDTO{
			ID:   note.Category.ID,
			Name: note.Category.Name,
			Slug: note.Category.Slug,
		}
	}

	for _, tag := range note.Tags {
		dto.Tags = append(dto.Tags, domain.TagRefDTO{ID: tag.ID, Name: tag.Name, Slug: tag.Slug})
	}

	return dto
}

// ToNoteDTO converts Note to its full representation
func ToNoteDTO(note *domain.Note) domain.NoteDTO {
	return domain.NoteDTO{
		NoteSummaryDTO: ToNoteSummaryDTO(note),
		Content:        note.Content,
	}
}

// ToNoteSummaryDTOs converts a slice of notes
func ToNoteSummaryDTOs(notes []domain.Note) []domain.NoteSummaryDTO {
	dtos := make([]domain.NoteSummaryDTO, len(notes))
	for i := range notes {
		dtos[i] = ToNoteSummaryDTO(&notes[i])
	}
	return dtos
}

// ToCommentDTO converts Comment to CommentDTO without replies
func ToCommentDTO(comment *domain.Comment) domain.CommentDTO {
	return domain.CommentDTO{
		ID:        comment.ID,
		NoteID:    comment.NoteID,
		ParentID:  comment.ParentID,
		Content:   comment.Content,
		Author:    ToAuthorDTO(comment.Author),
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

// ToCommentThreads nests replies under their top-level comment, keeping the order of both slices
func ToCommentThreads(roots []domain.Comment, replies []domain.Comment) []domain.CommentDTO {
	byParent := make(map[uuid.UUID][]domain.CommentDTO, len(roots))
	for i := range replies {
		if replies[i].ParentID == nil {
			continue
		}
		parent := *replies[i].ParentID
		byParent[parent] = append(byParent[parent], ToCommentDTO(&replies[i]))
	}

	threads := make([]domain.CommentDTO, len(roots))
	for i := range roots {
		threads[i] = ToCommentDTO(&roots[i])
		threads[i].Replies = byParent[roots[i].ID]
	}
	return threads
}

// ToAttachmentDTO converts Attachment to AttachmentDTO; the URL points at the download route
func ToAttachmentDTO(attachment *domain.Attachment) domain.AttachmentDTO {
	return domain.AttachmentDTO{
		ID:          attachment.ID,
		NoteID:      attachment.NoteID,
		FileName:    attachment.FileName,
		ContentType: attachment.ContentType,
		Size:        attachment.Size,
		URL:         "/api/v1/attachments/" + attachment.ID.String(),
		CreatedAt:   attachment.CreatedAt,
	}
}
