package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/catalog/internal/api/handlers"
	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
)

type MockBrandService struct {
	mock.Mock
}

func (m *MockBrandService) ListBrands(ctx context.Context, filter repositories.BrandFilter) ([]*entities.Brand, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Brand), args.Int(1), args.Error(2)
}

func TestBrandHandler_ListBrands(t *testing.T) {
	svc := new(MockBrandService)
	handler := handlers.NewBrandHandler(svc, 24, 100)

	svc.On("ListBrands", mock.Anything, repositories.BrandFilter{Query: "ac", Limit: 2, Offset: 4}).
		Return([]*entities.Brand{{ID: "b1", Name: "Acme"}}, 5, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/store/brands?q=ac&limit=2&offset=4", nil)
	rec := httptest.NewRecorder()
	handler.ListBrands(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.JSONEq(t, `5`, string(got["count"]))
	assert.JSONEq(t, `2`, string(got["limit"]))
	assert.JSONEq(t, `4`, string(got["offset"]))
	assert.Contains(t, string(got["brands"]), `"name":"Acme"`)
	assert.NotContains(t, got, "estimate_count")
	svc.AssertExpectations(t)
}

func TestBrandHandler_ListBrands_Defaults(t *testing.T) {
	svc := new(MockBrandService)
	handler := handlers.NewBrandHandler(svc, 24, 100)

	svc.On("ListBrands", mock.Anything, repositories.BrandFilter{Limit: 24}).
		Return([]*entities.Brand{}, 0, nil)

	rec := httptest.NewRecorder()
	handler.ListBrands(rec, httptest.NewRequest(http.MethodGet, "/api/store/brands", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"brands":[],"count":0,"limit":24,"offset":0}`, rec.Body.String())
}

func TestBrandHandler_ListBrands_CapsLimit(t *testing.T) {
	svc := new(MockBrandService)
	handler := handlers.NewBrandHandler(svc, 24, 100)

	svc.On("ListBrands", mock.Anything, repositories.BrandFilter{Limit: 100}).
		Return([]*entities.Brand{}, 0, nil)

	rec := httptest.NewRecorder()
	handler.ListBrands(rec, httptest.NewRequest(http.MethodGet, "/api/store/brands?limit=500", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestBrandHandler_ListBrands_InvalidParams(t *testing.T) {
	for _, query := range []string{"limit=abc", "limit=-1", "offset=x", "offset=-3"} {
		t.Run(query, func(t *testing.T) {
			svc := new(MockBrandService)
			handler := handlers.NewBrandHandler(svc, 24, 100)

			rec := httptest.NewRecorder()
			handler.ListBrands(rec, httptest.NewRequest(http.MethodGet, "/api/store/brands?"+query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "ListBrands", mock.Anything, mock.Anything)
		})
	}
}
