package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/edu-billing-api/internal/models"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
)

type groupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

// GroupService reads group pricing snapshots, optionally through Redis.
type GroupService struct {
	repo   groupRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewGroupService constructs the group reader. cache may be nil.
func NewGroupService(repo groupRepository, cache *CacheService, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, cache: cache, logger: logger}
}

func groupCacheKey(id string) string {
	return fmt.Sprintf("billing:group:%s", id)
}

// Get returns the group with its schedule and discount tiers.
func (s *GroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	key := groupCacheKey(id)
	var cached models.Group
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load group")
	}
	s.cache.Set(ctx, key, group)
	return group, nil
}

// Invalidate drops the cached snapshot of a group after it was edited upstream.
func (s *GroupService) Invalidate(ctx context.Context, id string) {
	s.cache.Invalidate(ctx, groupCacheKey(id))
}
