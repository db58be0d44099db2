package routes

import (
	"net/http"

	"github.com/storefront/catalog/internal/api/handlers"
	"github.com/storefront/catalog/internal/api/middleware"
	"github.com/storefront/catalog/internal/infrastructure/observability"
	"github.com/storefront/catalog/internal/loaders"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	catalogHandler *handlers.CatalogHandler
	brandHandler   *handlers.BrandHandler

	brandFetcher    loaders.BrandFetcher
	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// RouterOptions carries the optional router dependencies
type RouterOptions struct {
	// CacheMiddleware enables the response cache when set
	CacheMiddleware *middleware.CacheMiddleware
	AllowedOrigins  []string
	Metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	catalogHandler *handlers.CatalogHandler,
	brandHandler *handlers.BrandHandler,
	brandFetcher loaders.BrandFetcher,
	opts RouterOptions,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		catalogHandler:  catalogHandler,
		brandHandler:    brandHandler,
		brandFetcher:    brandFetcher,
		cacheMiddleware: opts.CacheMiddleware,
		allowedOrigins:  opts.AllowedOrigins,
		metrics:         opts.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Storefront catalog
	r.mux.HandleFunc("POST /api/store/category-products", r.catalogHandler.ListCategoryProducts)
	r.mux.HandleFunc("GET /api/store/category-facets", r.catalogHandler.GetCategoryFacets)
	r.mux.HandleFunc("GET /api/store/categories/{id}", r.catalogHandler.GetCategory)
	r.mux.HandleFunc("GET /api/store/brands", r.brandHandler.ListBrands)

	// Middleware wraps inside out; CORS is outermost so cached responses
	// carry CORS headers too.
	var handler http.Handler = r.mux
	handler = middleware.LoadersMiddleware(r.brandFetcher)(handler)
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ResponseOptimization(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
