package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pricing"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bytesA = append([]byte("\x89PNG\r\n\x1a\n"), "bytes A"...)
	bytesB = append([]byte{0xff, 0xd8, 0xff, 0xe0}, "bytes B"...)
)

func brl(s string) dto.PriceInput {
	return dto.PriceInput{Raw: s, Format: pricing.FormatBRL}
}

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	repo  *memRepo
	store *memStore
	uc    product.UseCase
}

func newFixture() *fixture {
	repo := newMemRepo()
	store := newMemStore()
	return &fixture{
		repo:  repo,
		store: store,
		uc:    NewProductUseCase(repo, store, logger.NewNop()),
	}
}

func (f *fixture) createFone(t *testing.T) *model.Product {
	t.Helper()
	p, err := f.uc.CreateProduct(context.Background(), &dto.CreateProductInput{
		Name:       "Fone Bluetooth",
		Brand:      "Sony",
		Categories: "Áudio",
		Price:      brl("199,90"),
		Image:      &dto.ImageUpload{Filename: "fone.png", Data: bytesA},
	})
	require.NoError(t, err)
	return p
}

func TestCreateProduct(t *testing.T) {
	f := newFixture()

	p := f.createFone(t)

	assert.NotEmpty(t, p.ID)
	assert.True(t, decimal.RequireFromString("199.90").Equal(p.Price))
	assert.Equal(t, "Fone Bluetooth", p.Name)
	require.NotEmpty(t, p.Image)

	content, ok := f.store.content(p.Image)
	require.True(t, ok, "image must exist right after creation")
	assert.Equal(t, bytesA, content)
}

func TestCreateProduct_TrimsText(t *testing.T) {
	f := newFixture()

	p, err := f.uc.CreateProduct(context.Background(), &dto.CreateProductInput{
		Name:       "  Mouse  ",
		Brand:      " Logitech",
		Categories: "Periféricos ",
		Price:      brl("89,90"),
		Image:      &dto.ImageUpload{Data: bytesA},
	})
	require.NoError(t, err)
	assert.Equal(t, "Mouse", p.Name)
	assert.Equal(t, "Logitech", p.Brand)
	assert.Equal(t, "Periféricos", p.Categories)
}

func TestCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input dto.CreateProductInput
		field string
	}{
		{
			name:  "price abc",
			input: dto.CreateProductInput{Name: "n", Brand: "b", Categories: "c", Price: brl("abc"), Image: &dto.ImageUpload{Data: bytesA}},
			field: "price",
		},
		{
			name:  "zero price",
			input: dto.CreateProductInput{Name: "n", Brand: "b", Categories: "c", Price: brl("0,00"), Image: &dto.ImageUpload{Data: bytesA}},
			field: "price",
		},
		{
			name:  "price beyond column range",
			input: dto.CreateProductInput{Name: "n", Brand: "b", Categories: "c", Price: brl("99.999.999.999,00"), Image: &dto.ImageUpload{Data: bytesA}},
			field: "price",
		},
		{
			name:  "missing image",
			input: dto.CreateProductInput{Name: "n", Brand: "b", Categories: "c", Price: brl("10")},
			field: "image",
		},
		{
			name:  "empty image",
			input: dto.CreateProductInput{Name: "n", Brand: "b", Categories: "c", Price: brl("10"), Image: &dto.ImageUpload{}},
			field: "image",
		},
		{
			name:  "not an image",
			input: dto.CreateProductInput{Name: "n", Brand: "b", Categories: "c", Price: brl("10"), Image: &dto.ImageUpload{Data: []byte("plain text")}},
			field: "image",
		},
		{
			name:  "blank name",
			input: dto.CreateProductInput{Name: "   ", Brand: "b", Categories: "c", Price: brl("10"), Image: &dto.ImageUpload{Data: bytesA}},
			field: "name",
		},
		{
			name:  "missing brand",
			input: dto.CreateProductInput{Name: "n", Categories: "c", Price: brl("10"), Image: &dto.ImageUpload{Data: bytesA}},
			field: "brand",
		},
		{
			name:  "missing categories",
			input: dto.CreateProductInput{Name: "n", Brand: "b", Price: brl("10"), Image: &dto.ImageUpload{Data: bytesA}},
			field: "categories",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.uc.CreateProduct(context.Background(), &tt.input)
			require.ErrorIs(t, err, product.ErrValidation)

			var verr *product.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)

			assert.Zero(t, f.repo.count(), "no record inserted")
			assert.Zero(t, f.store.count(), "no asset stored")
		})
	}
}

func TestCreateProduct_InsertFailureDiscardsAsset(t *testing.T) {
	f := newFixture()
	f.repo.insertErr = errors.Join(product.ErrPersistence, errors.New("connection reset"))

	_, err := f.uc.CreateProduct(context.Background(), &dto.CreateProductInput{
		Name: "n", Brand: "b", Categories: "c", Price: brl("10"),
		Image: &dto.ImageUpload{Data: bytesA},
	})

	require.ErrorIs(t, err, product.ErrPersistence)
	assert.Zero(t, f.store.count(), "stored image must be cleaned up")
	assert.Len(t, f.store.deletes, 1)
}

func TestCreateProduct_StoreFailure(t *testing.T) {
	f := newFixture()
	f.store.storeErr = errDisk

	_, err := f.uc.CreateProduct(context.Background(), &dto.CreateProductInput{
		Name: "n", Brand: "b", Categories: "c", Price: brl("10"),
		Image: &dto.ImageUpload{Data: bytesA},
	})

	require.ErrorIs(t, err, errDisk)
	assert.Zero(t, f.repo.inserts)
}

func TestUpdateProduct_PriceOnlyKeepsImage(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)

	updated, err := f.uc.UpdateProduct(context.Background(), &dto.UpdateProductInput{
		ID:    created.ID,
		Price: ptr(brl("1.199,00")),
	})
	require.NoError(t, err)

	assert.Equal(t, created.Image, updated.Image)
	assert.True(t, decimal.RequireFromString("1199.00").Equal(updated.Price))
	assert.Equal(t, "Fone Bluetooth", updated.Name)
	assert.Equal(t, "Sony", updated.Brand)
	assert.Equal(t, "Áudio", updated.Categories)
	assert.Equal(t, created.Version+1, updated.Version)

	_, ok := f.store.content(created.Image)
	assert.True(t, ok)
	assert.Empty(t, f.store.deletes)
}

func TestUpdateProduct_PlainPrice(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)

	updated, err := f.uc.UpdateProduct(context.Background(), &dto.UpdateProductInput{
		ID:    created.ID,
		Price: &dto.PriceInput{Raw: "249.5", Format: pricing.FormatPlain},
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("249.50").Equal(updated.Price))
}

func TestUpdateProduct_NewImageReplacesOld(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)
	oldRef := created.Image

	var rowImageAtDelete string
	f.store.onDelete = func(ref string) {
		if ref == oldRef {
			p, err := f.repo.FindByID(context.Background(), created.ID)
			require.NoError(t, err)
			rowImageAtDelete = p.Image
		}
	}

	updated, err := f.uc.UpdateProduct(context.Background(), &dto.UpdateProductInput{
		ID:    created.ID,
		Image: &dto.ImageUpload{Filename: "new.jpg", Data: bytesB},
	})
	require.NoError(t, err)

	assert.NotEqual(t, oldRef, updated.Image)
	assert.Equal(t, updated.Image, rowImageAtDelete, "record must point at the new image before the old one is deleted")

	_, ok := f.store.content(oldRef)
	assert.False(t, ok, "old asset must be gone")

	content, ok := f.store.content(updated.Image)
	require.True(t, ok)
	assert.Equal(t, bytesB, content)

	stored, err := f.repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Image, stored.Image)
	assert.True(t, created.Price.Equal(stored.Price))
}

func TestUpdateProduct_WriteFailureKeepsOldImage(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)
	f.repo.updateErr = errors.Join(product.ErrPersistence, errors.New("deadlock"))

	_, err := f.uc.UpdateProduct(context.Background(), &dto.UpdateProductInput{
		ID:    created.ID,
		Image: &dto.ImageUpload{Data: bytesB},
	})
	require.ErrorIs(t, err, product.ErrPersistence)

	_, ok := f.store.content(created.Image)
	assert.True(t, ok, "old image untouched")
	assert.Equal(t, 1, f.store.count(), "new image discarded")
}

func TestUpdateProduct_OldImageDeleteFailureKeepsUpdate(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)
	f.store.deleteErr = errDisk

	updated, err := f.uc.UpdateProduct(context.Background(), &dto.UpdateProductInput{
		ID:    created.ID,
		Image: &dto.ImageUpload{Data: bytesB},
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.Image, updated.Image)

	stored, err := f.repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Image, stored.Image)

	_, ok := f.store.content(created.Image)
	assert.True(t, ok, "old image left for the audit")
	assert.Equal(t, 2, f.store.count())
}

func TestUpdateProduct_ExternalImageIsNotDeleted(t *testing.T) {
	f := newFixture()
	legacy := model.Product{
		BaseModel:  model.BaseModel{ID: uuid.NewString()},
		Name:       "Teclado",
		Brand:      "Redragon",
		Categories: "Periféricos",
		Price:      decimal.RequireFromString("150"),
		Image:      "https://cdn.example.com/teclado.png",
	}
	f.repo.put(legacy)

	updated, err := f.uc.UpdateProduct(context.Background(), &dto.UpdateProductInput{
		ID:    legacy.ID,
		Image: &dto.ImageUpload{Data: bytesA},
	})
	require.NoError(t, err)
	assert.True(t, f.store.Owns(updated.Image))
	assert.Empty(t, f.store.deletes)
}

func TestUpdateProduct_Validation(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)

	_, err := f.uc.UpdateProduct(context.Background(), &dto.UpdateProductInput{
		ID:    created.ID,
		Name:  ptr("  "),
		Price: ptr(brl("12,3,4")),
		Image: &dto.ImageUpload{Data: []byte("nope")},
	})

	var verr *product.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "price")
	assert.Contains(t, verr.Fields, "image")

	stored, err := f.repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *stored)
	assert.Equal(t, 1, f.store.count())
}

func TestUpdateProduct_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.uc.UpdateProduct(context.Background(), &dto.UpdateProductInput{
		ID:    uuid.NewString(),
		Image: &dto.ImageUpload{Data: bytesA},
	})
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.Zero(t, f.store.count())
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)

	require.NoError(t, f.uc.DeleteProduct(context.Background(), created.ID))

	_, err := f.uc.GetProduct(context.Background(), created.ID)
	assert.ErrorIs(t, err, product.ErrNotFound)

	ok, err := f.store.Exists(context.Background(), created.Image)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	f := newFixture()
	f.createFone(t)

	err := f.uc.DeleteProduct(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, product.ErrNotFound)

	assert.Equal(t, 1, f.repo.count())
	assert.Equal(t, 1, f.store.count())
	assert.Empty(t, f.store.deletes)
}

func TestDeleteProduct_MissingImageStillDeletesRecord(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)
	require.NoError(t, f.store.Delete(context.Background(), created.Image))

	require.NoError(t, f.uc.DeleteProduct(context.Background(), created.ID))
	assert.Zero(t, f.repo.count())
}

func TestDeleteProduct_AssetFailureKeepsRecord(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)
	f.store.deleteErr = errDisk

	err := f.uc.DeleteProduct(context.Background(), created.ID)
	require.ErrorIs(t, err, errDisk)
	assert.Equal(t, 1, f.repo.count())
}

func TestDeleteProduct_ImageGoneBeforeRecord(t *testing.T) {
	f := newFixture()
	created := f.createFone(t)
	f.repo.deleteErr = errors.Join(product.ErrPersistence, errors.New("timeout"))

	err := f.uc.DeleteProduct(context.Background(), created.ID)
	require.ErrorIs(t, err, product.ErrPersistence)

	// Documented failure mode: the row survives with a dangling reference.
	assert.Equal(t, 1, f.repo.count())
	_, ok := f.store.content(created.Image)
	assert.False(t, ok)
}

func TestListProducts_OrderedByName(t *testing.T) {
	f := newFixture()
	for _, name := range []string{"Webcam", "Caixa de Som", "Monitor"} {
		_, err := f.uc.CreateProduct(context.Background(), &dto.CreateProductInput{
			Name: name, Brand: "b", Categories: "c", Price: brl("10"),
			Image: &dto.ImageUpload{Data: bytesA},
		})
		require.NoError(t, err)
	}

	list, err := f.uc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Caixa de Som", list[0].Name)
	assert.Equal(t, "Monitor", list[1].Name)
	assert.Equal(t, "Webcam", list[2].Name)
}
