package service

import (
	"context"
	"fmt"

	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/mapper"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardTopNotes       = 5
	dashboardRecentComments = 5
)

// StatsService aggregates site totals for the owner dashboard and reporting jobs
type StatsService struct {
	notes      *repository.NoteRepository
	comments   *repository.CommentRepository
	likes      *repository.LikeRepository
	categories *repository.CategoryRepository
	tags       *repository.TagRepository
	users      *repository.UserRepository
	cache      CacheInvalidator
	logger     *zap.Logger
}

func NewStatsService(
	notes *repository.NoteRepository,
	comments *repository.CommentRepository,
	likes *repository.LikeRepository,
	categories *repository.CategoryRepository,
	tags *repository.TagRepository,
	users *repository.UserRepository,
	cache CacheInvalidator,
	logger *zap.Logger,
) *StatsService {
	return &StatsService{
		notes:      notes,
		comments:   comments,
		likes:      likes,
		categories: categories,
		tags:       tags,
		users:      users,
		cache:      cache,
		logger:     logger,
	}
}

// Dashboard returns site totals, the most liked notes and the newest comments
func (s *StatsService) Dashboard(ctx context.Context) (*domain.StatsDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionStatsRead); err != nil {
		return nil, err
	}

	var (
		stats    domain.StatsDTO
		byStatus map[domain.NoteStatus]int64
		top      []domain.Note
		recent   []domain.Comment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byStatus, err = s.notes.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Views, err = s.notes.TotalViews(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Comments, err = s.comments.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Likes, err = s.likes.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Categories, err = s.categories.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Tags, err = s.tags.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Users, err = s.users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		top, err = s.notes.TopByLikes(gctx, dashboardTopNotes)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.comments.ListRecent(gctx, dashboardRecentComments)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	stats.PublishedNotes = byStatus[domain.NoteStatusPublished]
	stats.DraftNotes = byStatus[domain.NoteStatusDraft]
	stats.TopNotes = mapper.ToNoteSummaryDTOs(top)
	stats.RecentComments = make([]domain.CommentDTO, len(recent))
	for i := range recent {
		stats.RecentComments[i] = mapper.ToCommentDTO(&recent[i])
	}

	return &stats, nil
}

// EngagementSnapshot returns per-note counters of published notes
func (s *StatsService) EngagementSnapshot(ctx context.Context) ([]domain.NoteEngagement, error) {
	rows, err := s.notes.EngagementSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load engagement snapshot: %w", err)
	}
	return rows, nil
}

// ReconcileCounters repairs drifted like and comment counters and returns how many notes changed
func (s *StatsService) ReconcileCounters(ctx context.Context) (int64, error) {
	fixed, err := s.notes.ReconcileCounters(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile counters: %w", err)
	}
	if fixed > 0 {
		s.logger.Info("note counters reconciled", zap.Int64("notes", fixed))
		s.cache.Invalidate(ctx, cache.PatternNotes, cache.PatternStats)
	}
	return fixed, nil
}
