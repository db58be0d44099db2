package loaders

import (
	"context"
	"fmt"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/storefront/catalog/internal/domain/entities"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// BrandFetcher is the batch lookup the brand loader is built on
type BrandFetcher interface {
	GetBrandsByIDs(ctx context.Context, ids []string) ([]*entities.Brand, error)
}

// Loaders contains the request-scoped dataloaders
type Loaders struct {
	BrandLoader *dataloader.Loader[string, *entities.Brand]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(brands BrandFetcher) *Loaders {
	return &Loaders{
		BrandLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Brand] {
			results := make([]*dataloader.Result[*entities.Brand], len(keys))
			found, err := brands.GetBrandsByIDs(ctx, keys)

			brandMap := make(map[string]*entities.Brand, len(found))
			if err == nil {
				for _, b := range found {
					brandMap[b.ID] = b
				}
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Brand]{Error: err}
				} else if b, ok := brandMap[key]; ok {
					results[i] = &dataloader.Result[*entities.Brand]{Data: b}
				} else {
					results[i] = &dataloader.Result[*entities.Brand]{Error: fmt.Errorf("brand %s not found", key)}
				}
			}
			return results
		}),
	}
}

// BrandNames resolves display names for brand IDs in one batch. IDs that
// cannot be resolved are absent from the result.
func (l *Loaders) BrandNames(ctx context.Context, ids []string) map[string]string {
	thunks := make([]dataloader.Thunk[*entities.Brand], len(ids))
	for i, id := range ids {
		thunks[i] = l.BrandLoader.Load(ctx, id)
	}

	names := make(map[string]string, len(ids))
	for i, thunk := range thunks {
		brand, err := thunk()
		if err != nil || brand == nil {
			continue
		}
		names[ids[i]] = brand.Name
	}
	return names
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}
