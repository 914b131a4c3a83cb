package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pricing"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errBadRequest = errors.New("invalid request body")

type ProductHandler struct {
	uc             product.UseCase
	logger         logger.ZapLogger
	maxUploadBytes int64
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger, maxUploadBytes int64) *ProductHandler {
	return &ProductHandler{
		uc:             uc,
		logger:         log,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	products := rg.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)
	products.POST("", h.CreateProduct)
	products.PUT("/:id", h.UpdateProduct)
	products.DELETE("/:id", h.DeleteProduct)
}

type productResponse struct {
	model.Product
	PriceFormatted string `json:"price_formatted"`
}

func toResponse(p *model.Product) productResponse {
	return productResponse{Product: *p, PriceFormatted: pricing.FormatCurrency(p.Price)}
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.uc.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, toResponse(&products[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, err := h.uc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	if !h.limitBody(c) {
		return
	}
	if _, err := c.MultipartForm(); err != nil {
		h.fail(c, h.bodyError(err))
		return
	}

	img, err := readImage(c)
	if err != nil {
		h.fail(c, h.bodyError(err))
		return
	}

	input := &dto.CreateProductInput{
		Name:       c.PostForm("name"),
		Brand:      c.PostForm("brand"),
		Categories: c.PostForm("categories"),
		Price:      dto.PriceInput{Raw: c.PostForm("price"), Format: pricing.FormatBRL},
		Image:      img,
	}

	p, err := h.uc.CreateProduct(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(p))
}

type updateProductRequest struct {
	Name       *string         `json:"name"`
	Brand      *string         `json:"brand"`
	Categories *string         `json:"categories"`
	Price      json.RawMessage `json:"price"`
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	if !h.limitBody(c) {
		return
	}

	var (
		input *dto.UpdateProductInput
		err   error
	)
	if c.ContentType() == gin.MIMEJSON {
		input, err = updateFromJSON(c)
	} else {
		input, err = updateFromForm(c)
	}
	if err != nil {
		h.fail(c, h.bodyError(err))
		return
	}
	input.ID = c.Param("id")

	p, err := h.uc.UpdateProduct(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.uc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateFromJSON(c *gin.Context) (*dto.UpdateProductInput, error) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	input := &dto.UpdateProductInput{
		Name:       req.Name,
		Brand:      req.Brand,
		Categories: req.Categories,
	}

	raw := bytes.TrimSpace(req.Price)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		input.Price = &dto.PriceInput{Raw: s, Format: pricing.FormatBRL}
	default:
		// A JSON number is already in canonical decimal form.
		input.Price = &dto.PriceInput{Raw: string(raw), Format: pricing.FormatPlain}
	}
	return input, nil
}

func updateFromForm(c *gin.Context) (*dto.UpdateProductInput, error) {
	if _, err := c.MultipartForm(); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}

	input := &dto.UpdateProductInput{}
	if v, ok := c.GetPostForm("name"); ok {
		input.Name = &v
	}
	if v, ok := c.GetPostForm("brand"); ok {
		input.Brand = &v
	}
	if v, ok := c.GetPostForm("categories"); ok {
		input.Categories = &v
	}
	if v, ok := c.GetPostForm("price"); ok {
		input.Price = &dto.PriceInput{Raw: v, Format: pricing.FormatBRL}
	}

	img, err := readImage(c)
	if err != nil {
		return nil, err
	}
	input.Image = img
	return input, nil
}

// readImage returns nil when the request carries no "image" file.
func readImage(c *gin.Context) (*dto.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return readUpload(fh)
}

func readUpload(fh *multipart.FileHeader) (*dto.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &dto.ImageUpload{Filename: fh.Filename, Data: data}, nil
}

func (h *ProductHandler) limitBody(c *gin.Context) bool {
	if h.maxUploadBytes <= 0 {
		return true
	}
	if c.Request.ContentLength > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	return true
}

type tooLargeError struct{ error }

func (h *ProductHandler) bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return tooLargeError{err}
	}
	h.logger.Debug("rejected request body", zap.Error(err))
	return errBadRequest
}

func (h *ProductHandler) fail(c *gin.Context, err error) {
	var (
		verr     *product.ValidationError
		tooLarge tooLargeError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": product.ErrValidation.Error(), "fields": verr.Fields})
	case errors.Is(err, product.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest.Error()})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
	case errors.Is(err, product.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": product.ErrNotFound.Error()})
	default:
		h.logger.Error("product request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
