package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type Repository interface {
	Insert(ctx context.Context, fields model.ProductFields) (*model.Product, error)
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id string) (*model.Product, error)
	Update(ctx context.Context, id string, fields model.ProductFields) (*model.Product, error)
	Delete(ctx context.Context, id string) error

	// Every image reference currently stored, for orphan detection.
	ListImageRefs(ctx context.Context) ([]string, error)
}
