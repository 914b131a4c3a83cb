package usecase

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"go.uber.org/zap"
)

type categoryUseCase struct {
	repo   category.Repository
	logger logger.ZapLogger
}

func NewCategoryUseCase(repo category.Repository, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.CategorySummary, error) {
	if filters == nil {
		filters = &dto.CategoryFilters{}
	}

	summaries, err := uc.repo.ListSummaries(ctx, filters)
	if err != nil {
		uc.logger.Error("failed to list categories", zap.String("search", filters.Search), zap.Error(err))
		return nil, err
	}
	return summaries, nil
}
