package model

import "github.com/shopspring/decimal"

type Product struct {
	BaseModel
	Name       string          `db:"name" json:"name"`
	Brand      string          `db:"brand" json:"brand"`
	Categories string          `db:"categories" json:"categories"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Image      string          `db:"image" json:"image"`
	// Version grows by one on every update. Nothing checks it yet; it is the
	// slot for an optimistic concurrency token.
	Version int64 `db:"version" json:"version"`
}

// ProductFields is the writable part of a product row.
type ProductFields struct {
	Name       string          `db:"name" validate:"required,max=255"`
	Brand      string          `db:"brand" validate:"required,max=255"`
	Categories string          `db:"categories" validate:"required,max=255"`
	Price      decimal.Decimal `db:"price"`
	Image      string          `db:"image" validate:"required"`
}

func (p *Product) Fields() ProductFields {
	return ProductFields{
		Name:       p.Name,
		Brand:      p.Brand,
		Categories: p.Categories,
		Price:      p.Price,
		Image:      p.Image,
	}
}
