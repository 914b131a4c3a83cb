package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const productColumns = `id::text AS id, name, brand, categories, price, image, version, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

var _ product.Repository = (*PGRepository)(nil)

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Insert(ctx context.Context, f model.ProductFields) (*model.Product, error) {
	query := `
        INSERT INTO products (name, brand, categories, price, image)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + productColumns

	var p model.Product
	err := r.DB.QueryRowxContext(ctx, query, f.Name, f.Brand, f.Categories, f.Price, f.Image).StructScan(&p)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w: %w", product.ErrPersistence, err)
	}
	return &p, nil
}

func (r *PGRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	products := []model.Product{}
	query := `SELECT ` + productColumns + ` FROM products ORDER BY name ASC, id ASC`
	if err := r.DB.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("list products: %w: %w", product.ErrPersistence, err)
	}
	return products, nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, product.ErrNotFound
	}

	var p model.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("get product %s: %w: %w", id, product.ErrPersistence, err)
	}
	return &p, nil
}

func (r *PGRepository) Update(ctx context.Context, id string, f model.ProductFields) (*model.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, product.ErrNotFound
	}

	query := `
        UPDATE products
        SET name = $1,
            brand = $2,
            categories = $3,
            price = $4,
            image = $5,
            version = version + 1,
            updated_at = NOW()
        WHERE id = $6
        RETURNING ` + productColumns

	var p model.Product
	err := r.DB.QueryRowxContext(ctx, query, f.Name, f.Brand, f.Categories, f.Price, f.Image, id).StructScan(&p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("update product %s: %w: %w", id, product.ErrPersistence, err)
	}
	return &p, nil
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return product.ErrNotFound
	}

	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w: %w", id, product.ErrPersistence, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product %s: %w: %w", id, product.ErrPersistence, err)
	}
	if rows == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *PGRepository) ListImageRefs(ctx context.Context) ([]string, error) {
	refs := []string{}
	if err := r.DB.SelectContext(ctx, &refs, `SELECT image FROM products ORDER BY image`); err != nil {
		return nil, fmt.Errorf("list image refs: %w: %w", product.ErrPersistence, err)
	}
	return refs, nil
}
