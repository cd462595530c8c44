package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/mapper"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CategoryService manages note categories
type CategoryService struct {
	repo   *repository.CategoryRepository
	cache  CacheInvalidator
	logger *zap.Logger
}

func NewCategoryService(repo *repository.CategoryRepository, cache CacheInvalidator, logger *zap.Logger) *CategoryService {
	return &CategoryService{repo: repo, cache: cache, logger: logger}
}

// List returns every category with its published note count
func (s *CategoryService) List(ctx context.Context) ([]domain.CategoryDTO, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	counts, err := s.repo.PublishedNoteCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count category notes: %w", err)
	}

	dtos := make([]domain.CategoryDTO, len(categories))
	for i := range categories {
		dtos[i] = mapper.ToCategoryDTO(&categories[i], counts[categories[i].ID])
	}
	return dtos, nil
}

// Get returns a category by id or slug
func (s *CategoryService) Get(ctx context.Context, idOrSlug string) (*domain.CategoryDTO, error) {
	category, err := s.find(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.PublishedNoteCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count category notes: %w", err)
	}
	dto := mapper.ToCategoryDTO(category, counts[category.ID])
	return &dto, nil
}

func (s *CategoryService) find(ctx context.Context, idOrSlug string) (*domain.Category, error) {
	id, slug := parseIDOrSlug(idOrSlug)
	var (
		category *domain.Category
		err      error
	)
	if slug == "" {
		category, err = s.repo.GetByID(ctx, id)
	} else {
		category, err = s.repo.GetBySlug(ctx, slug)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, req *domain.CreateCategoryRequest) (*domain.CategoryDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionTaxonomyWrite); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	slug, err := s.checkName(ctx, name, nil)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(req.Description),
		SortOrder:   req.SortOrder,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("category created", zap.String("category_id", category.ID.String()), zap.String("slug", slug))
	s.cache.Invalidate(ctx, cache.PatternCategories, cache.PatternStats)

	dto := mapper.ToCategoryDTO(category, 0)
	return &dto, nil
}

func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateCategoryRequest) (*domain.CategoryDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionTaxonomyWrite); err != nil {
		return nil, err
	}

	category, err := s.find(ctx, id.String())
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	slug, err := s.checkName(ctx, name, &category.ID)
	if err != nil {
		return nil, err
	}

	category.Name = name
	category.Slug = slug
	category.Description = strings.TrimSpace(req.Description)
	category.SortOrder = req.SortOrder

	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.cache.Invalidate(ctx, cache.PatternCategories, cache.PatternNotes)
	return s.Get(ctx, category.ID.String())
}

// Delete removes a category; its notes keep existing without a category
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePermission(ctx, domain.PermissionTaxonomyWrite); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.logger.Info("category deleted", zap.String("category_id", id.String()))
	s.cache.Invalidate(ctx, cache.PatternCategories, cache.PatternNotes, cache.PatternStats)
	return nil
}

func (s *CategoryService) checkName(ctx context.Context, name string, excludeID *uuid.UUID) (string, error) {
	slug := Slugify(name)
	if slug == "" {
		return "", invalidInput("category name must contain letters or digits")
	}
	taken, err := s.repo.NameOrSlugTaken(ctx, name, slug, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check category name: %w", err)
	}
	if taken {
		return "", ErrCategoryExists
	}
	return slug, nil
}

// TagService manages tags and resolves tag names on notes
type TagService struct {
	repo   *repository.TagRepository
	cache  CacheInvalidator
	logger *zap.Logger
}

func NewTagService(repo *repository.TagRepository, cache CacheInvalidator, logger *zap.Logger) *TagService {
	return &TagService{repo: repo, cache: cache, logger: logger}
}

// List returns every tag with its published note count
func (s *TagService) List(ctx context.Context) ([]domain.TagDTO, error) {
	tags, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	counts, err := s.repo.PublishedNoteCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tag notes: %w", err)
	}

	dtos := make([]domain.TagDTO, len(tags))
	for i := range tags {
		dtos[i] = mapper.ToTagDTO(&tags[i], counts[tags[i].ID])
	}
	return dtos, nil
}

func (s *TagService) Create(ctx context.Context, req *domain.CreateTagRequest) (*domain.TagDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionTaxonomyWrite); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	slug, err := s.checkName(ctx, name, nil)
	if err != nil {
		return nil, err
	}

	tag := &domain.Tag{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTagExists
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	s.cache.Invalidate(ctx, cache.PatternTags, cache.PatternStats)
	dto := mapper.ToTagDTO(tag, 0)
	return &dto, nil
}

func (s *TagService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateTagRequest) (*domain.TagDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionTaxonomyWrite); err != nil {
		return nil, err
	}

	tag, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	slug, err := s.checkName(ctx, name, &tag.ID)
	if err != nil {
		return nil, err
	}
	tag.Name = name
	tag.Slug = slug

	if err := s.repo.Update(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTagExists
		}
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}

	s.cache.Invalidate(ctx, cache.PatternTags, cache.PatternNotes)

	counts, err := s.repo.PublishedNoteCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tag notes: %w", err)
	}
	dto := mapper.ToTagDTO(tag, counts[tag.ID])
	return &dto, nil
}

// Delete removes a tag and detaches it from every note
func (s *TagService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePermission(ctx, domain.PermissionTaxonomyWrite); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	s.logger.Info("tag deleted", zap.String("tag_id", id.String()))
	s.cache.Invalidate(ctx, cache.PatternTags, cache.PatternNotes, cache.PatternStats)
	return nil
}

// EnsureTags returns the tags named by names, creating missing ones. Names are
// trimmed, empty ones dropped and duplicates (by slug) collapsed, keeping input order.
func (s *TagService) EnsureTags(ctx context.Context, names []string) ([]domain.Tag, error) {
	type wanted struct{ name, slug string }
	var (
		order []wanted
		seen  = make(map[string]bool)
	)
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		slug := Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		order = append(order, wanted{name: name, slug: slug})
	}
	if len(order) == 0 {
		return []domain.Tag{}, nil
	}

	slugs := make([]string, len(order))
	for i, w := range order {
		slugs[i] = w.slug
	}
	existing, err := s.repo.FindBySlugs(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	bySlug := make(map[string]domain.Tag, len(existing))
	for _, tag := range existing {
		bySlug[tag.Slug] = tag
	}

	created := false
	tags := make([]domain.Tag, 0, len(order))
	for _, w := range order {
		if tag, ok := bySlug[w.slug]; ok {
			tags = append(tags, tag)
			continue
		}

		tag := domain.Tag{Name: w.name, Slug: w.slug}
		if err := s.repo.Create(ctx, &tag); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("failed to create tag %q: %w", w.name, err)
			}
			// a concurrent writer created it, or the name differs only in case
			found, getErr := s.repo.GetBySlug(ctx, w.slug)
			if getErr != nil {
				return nil, ErrTagExists
			}
			tag = *found
		} else {
			created = true
		}
		tags = append(tags, tag)
	}

	if created {
		s.cache.Invalidate(ctx, cache.PatternTags)
	}
	return tags, nil
}

func (s *TagService) checkName(ctx context.Context, name string, excludeID *uuid.UUID) (string, error) {
	slug := Slugify(name)
	if slug == "" {
		return "", invalidInput("tag name must contain letters or digits")
	}
	taken, err := s.repo.NameOrSlugTaken(ctx, name, slug, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check tag name: %w", err)
	}
	if taken {
		return "", ErrTagExists
	}
	return slug, nil
}
