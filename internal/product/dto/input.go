package dto

import "github.com/fekuna/omnipos-catalog-service/internal/pricing"

// PriceInput is a price exactly as the client sent it.
type PriceInput struct {
	Raw    string
	Format pricing.Format
}

type ImageUpload struct {
	Filename string
	Data     []byte
}

type CreateProductInput struct {
	Name       string
	Brand      string
	Categories string
	Price      PriceInput
	Image      *ImageUpload
}

// UpdateProductInput merges over the stored product: nil fields keep their value.
type UpdateProductInput struct {
	ID         string
	Name       *string
	Brand      *string
	Categories *string
	Price      *PriceInput
	Image      *ImageUpload
}
