package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// PGRepository derives categories from the free-text products.categories
// column. There is no categories table.
type PGRepository struct {
	DB *sqlx.DB
}

var _ category.Repository = (*PGRepository)(nil)

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ListSummaries(ctx context.Context, f *dto.CategoryFilters) ([]model.CategorySummary, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f != nil && strings.TrimSpace(f.Search) != "" {
		conditions = append(conditions, "categories ILIKE :search")
		args["search"] = "%" + escapeLike(strings.TrimSpace(f.Search)) + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := "SELECT categories AS name, count(*) AS product_count FROM products" +
		whereClause + " GROUP BY categories ORDER BY categories ASC"

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare category summary: %w", err)
	}
	defer nstmt.Close()

	summaries := []model.CategorySummary{}
	if err := nstmt.SelectContext(ctx, &summaries, args); err != nil {
		return nil, fmt.Errorf("list category summary: %w", err)
	}
	return summaries, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
