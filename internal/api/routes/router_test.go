package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storefront/catalog/internal/api/handlers"
	"github.com/storefront/catalog/internal/application/services"
)

func newTestRouter() http.Handler {
	catalog := handlers.NewCatalogHandler(nil, nil, nil, services.NewFilterNormalizer(nil))
	brands := handlers.NewBrandHandler(nil, 24, 100)
	return NewRouter(catalog, brands, nil, RouterOptions{AllowedOrigins: []string{"*"}}).SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	handler := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	handler := newTestRouter()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/store/category-products", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
