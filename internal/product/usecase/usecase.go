package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/asset"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pricing"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type productUseCase struct {
	repo     product.Repository
	assets   asset.Store
	validate *validator.Validate
	logger   logger.ZapLogger
}

func NewProductUseCase(repo product.Repository, assets asset.Store, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:     repo,
		assets:   assets,
		validate: validator.New(),
		logger:   log,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	fields := model.ProductFields{
		Name:       strings.TrimSpace(input.Name),
		Brand:      strings.TrimSpace(input.Brand),
		Categories: strings.TrimSpace(input.Categories),
	}

	problems := map[string]string{}

	price, err := pricing.Parse(input.Price.Raw, input.Price.Format)
	if err != nil {
		problems["price"] = "price must be a number greater than zero"
	}
	fields.Price = price

	if input.Image == nil {
		problems["image"] = "image is required"
	} else {
		checkImage(input.Image, problems)
	}

	uc.checkFields(fields, problems)
	if len(problems) > 0 {
		return nil, &product.ValidationError{Fields: problems}
	}

	ref, err := uc.assets.Store(ctx, input.Image.Data, input.Image.Filename)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	fields.Image = ref

	p, err := uc.repo.Insert(ctx, fields)
	if err != nil {
		uc.discardAsset(ctx, ref)
		return nil, err
	}

	uc.logger.Info("product created",
		zap.String("product_id", p.ID),
		zap.String("image", p.Image),
	)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *productUseCase) ListProducts(ctx context.Context) ([]model.Product, error) {
	return uc.repo.FindAll(ctx)
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	existing, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	fields := existing.Fields()
	problems := map[string]string{}

	if input.Name != nil {
		fields.Name = strings.TrimSpace(*input.Name)
	}
	if input.Brand != nil {
		fields.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.Categories != nil {
		fields.Categories = strings.TrimSpace(*input.Categories)
	}
	if input.Price != nil {
		price, err := pricing.Parse(input.Price.Raw, input.Price.Format)
		if err != nil {
			problems["price"] = "price must be a number greater than zero"
		} else {
			fields.Price = price
		}
	}
	if input.Image != nil {
		checkImage(input.Image, problems)
	}

	uc.checkFields(fields, problems)
	if len(problems) > 0 {
		return nil, &product.ValidationError{Fields: problems}
	}

	if input.Image == nil {
		p, err := uc.repo.Update(ctx, existing.ID, fields)
		if err != nil {
			return nil, err
		}
		uc.logger.Info("product updated", zap.String("product_id", p.ID))
		return p, nil
	}

	newRef, err := uc.assets.Store(ctx, input.Image.Data, input.Image.Filename)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	fields.Image = newRef

	p, err := uc.repo.Update(ctx, existing.ID, fields)
	if err != nil {
		uc.discardAsset(ctx, newRef)
		return nil, err
	}

	// The row now points at newRef, so the previous file can go. The update
	// already happened; a file left behind is for assetaudit to prune.
	if err := uc.deleteAsset(ctx, existing.Image); err != nil {
		uc.logger.Warn("previous image left orphaned",
			zap.String("product_id", p.ID),
			zap.String("image", existing.Image),
			zap.Error(err),
		)
	}

	uc.logger.Info("product updated",
		zap.String("product_id", p.ID),
		zap.String("image", p.Image),
		zap.String("previous_image", existing.Image),
	)
	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id string) error {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if uc.assets.Owns(p.Image) {
		ok, err := uc.assets.Exists(ctx, p.Image)
		if err != nil {
			return fmt.Errorf("check image: %w", err)
		}
		if !ok {
			uc.logger.Warn("product image already missing",
				zap.String("product_id", p.ID),
				zap.String("image", p.Image),
			)
		}
	}

	// Asset first: an interruption here leaves a row with a dangling image,
	// never an unreferenced file.
	if err := uc.deleteAsset(ctx, p.Image); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	if err := uc.repo.Delete(ctx, p.ID); err != nil {
		return err
	}

	uc.logger.Info("product deleted", zap.String("product_id", p.ID))
	return nil
}

// deleteAsset removes ref when it belongs to the asset store. External image
// URLs are left alone.
func (uc *productUseCase) deleteAsset(ctx context.Context, ref string) error {
	if !uc.assets.Owns(ref) {
		return nil
	}
	return uc.assets.Delete(ctx, ref)
}

// discardAsset undoes a Store whose record write failed.
func (uc *productUseCase) discardAsset(ctx context.Context, ref string) {
	cleanupCtx := context.WithoutCancel(ctx)
	if err := uc.assets.Delete(cleanupCtx, ref); err != nil {
		uc.logger.Warn("failed to discard unreferenced image",
			zap.String("image", ref),
			zap.Error(err),
		)
		return
	}
	uc.logger.Debug("discarded unreferenced image", zap.String("image", ref))
}

func (uc *productUseCase) checkFields(fields model.ProductFields, problems map[string]string) {
	err := uc.validate.StructExcept(fields, "Image")
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		problems["_"] = err.Error()
		return
	}

	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			problems[field] = fmt.Sprintf("%s is required", field)
		case "max":
			problems[field] = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		default:
			problems[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
}

func checkImage(img *dto.ImageUpload, problems map[string]string) {
	switch _, err := asset.DetectImage(img.Data); {
	case errors.Is(err, asset.ErrEmpty):
		problems["image"] = "image is required"
	case err != nil:
		problems["image"] = "image must be a JPEG, PNG, WebP or GIF file"
	}
}
