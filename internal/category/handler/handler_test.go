package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUseCase struct {
	filters   *dto.CategoryFilters
	summaries []model.CategorySummary
	err       error
}

func (s *stubUseCase) ListCategories(_ context.Context, f *dto.CategoryFilters) ([]model.CategorySummary, error) {
	s.filters = f
	return s.summaries, s.err
}

func serve(uc *stubUseCase, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewCategoryHandler(uc, logger.NewNop()).RegisterRoutes(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestListCategories(t *testing.T) {
	uc := &stubUseCase{summaries: []model.CategorySummary{
		{Name: "Periféricos", ProductCount: 3},
		{Name: "Áudio", ProductCount: 1},
	}}

	w := serve(uc, "/api/categories?q=fer")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"Periféricos","product_count":3},{"name":"Áudio","product_count":1}]`, w.Body.String())
	require.NotNil(t, uc.filters)
	assert.Equal(t, "fer", uc.filters.Search)
}

func TestListCategories_Failure(t *testing.T) {
	w := serve(&stubUseCase{err: errors.New("connection refused")}, "/api/categories")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}
