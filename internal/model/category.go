package model

// CategorySummary is one distinct value of products.categories.
type CategorySummary struct {
	Name         string `db:"name" json:"name"`
	ProductCount int    `db:"product_count" json:"product_count"`
}
