package category

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type Repository interface {
	ListSummaries(ctx context.Context, filters *dto.CategoryFilters) ([]model.CategorySummary, error)
}
