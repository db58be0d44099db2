package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/storefront/catalog/internal/domain/repositories"
)

const defaultIndexBatchSize = 250

// ProductIndexer copies every published product from the primary store into
// a search index
type ProductIndexer struct {
	source    repositories.ProductQueryRepository
	index     repositories.ProductIndex
	batchSize int
}

// NewProductIndexer creates a new product indexer. batchSize <= 0 selects
// the default of 250.
func NewProductIndexer(source repositories.ProductQueryRepository, index repositories.ProductIndex, batchSize int) *ProductIndexer {
	if batchSize <= 0 {
		batchSize = defaultIndexBatchSize
	}
	return &ProductIndexer{source: source, index: index, batchSize: batchSize}
}

// IndexAll pages through the published products and indexes each one. A
// product that fails to index is logged and skipped; a failing page read
// aborts the run.
func (i *ProductIndexer) IndexAll(ctx context.Context) (indexed int, failed int, err error) {
	return i.indexMatching(ctx, repositories.ProductPredicate{})
}

// IndexCategory reindexes the published products of one category
func (i *ProductIndexer) IndexCategory(ctx context.Context, categoryID string) (indexed int, failed int, err error) {
	if categoryID == "" {
		return 0, 0, fmt.Errorf("category ID is required")
	}
	return i.indexMatching(ctx, repositories.ProductPredicate{CategoryID: categoryID})
}

func (i *ProductIndexer) indexMatching(ctx context.Context, predicate repositories.ProductPredicate) (indexed int, failed int, err error) {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return indexed, failed, err
		}

		products, total, err := i.source.QueryProducts(ctx, repositories.ProductQuery{
			Predicate: predicate,
			Limit:     i.batchSize,
			Offset:    offset,
		})
		if err != nil {
			return indexed, failed, fmt.Errorf("failed to read products at offset %d: %w", offset, err)
		}

		for _, p := range products {
			if err := i.index.IndexProduct(ctx, p); err != nil {
				failed++
				log.Warn().Err(err).Str("product_id", p.ID).Msg("Failed to index product")
				continue
			}
			indexed++
		}

		offset += i.batchSize
		if len(products) == 0 || offset >= total {
			return indexed, failed, nil
		}
	}
}
