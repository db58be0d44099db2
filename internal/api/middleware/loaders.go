package middleware

import (
	"net/http"

	"github.com/storefront/catalog/internal/loaders"
)

// LoadersMiddleware attaches fresh request-scoped dataloaders to every request
func LoadersMiddleware(brands loaders.BrandFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := loaders.WithLoaders(r.Context(), loaders.NewLoaders(brands))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
