// Package instrumented decorates repositories with tracing and metrics.
package instrumented

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	"github.com/storefront/catalog/internal/infrastructure/observability"
)

// ProductQueryAdapter records a span and a duration sample for every call
// to the wrapped query backend
type ProductQueryAdapter struct {
	next    repositories.ProductQueryRepository
	backend string
	metrics *observability.Metrics
}

// NewProductQueryAdapter wraps a product query backend. backend names it in
// span and metric attributes.
func NewProductQueryAdapter(next repositories.ProductQueryRepository, backend string, metrics *observability.Metrics) repositories.ProductQueryRepository {
	return &ProductQueryAdapter{next: next, backend: backend, metrics: metrics}
}

func (a *ProductQueryAdapter) QueryProducts(ctx context.Context, query repositories.ProductQuery) ([]*entities.Product, int, error) {
	ctx, done := a.start(ctx, "QueryProducts")
	products, total, err := a.next.QueryProducts(ctx, query)
	done(err)
	return products, total, err
}

func (a *ProductQueryAdapter) CountProducts(ctx context.Context, predicate repositories.ProductPredicate) (int, error) {
	ctx, done := a.start(ctx, "CountProducts")
	total, err := a.next.CountProducts(ctx, predicate)
	done(err)
	return total, err
}

func (a *ProductQueryAdapter) AggregateTerms(ctx context.Context, predicate repositories.ProductPredicate, field entities.FacetField, limit int) ([]entities.FacetBucket, error) {
	ctx, done := a.start(ctx, "AggregateTerms", attribute.String("catalog.facet", field.Key()))
	buckets, err := a.next.AggregateTerms(ctx, predicate, field, limit)
	done(err)
	return buckets, err
}

func (a *ProductQueryAdapter) AggregatePrice(ctx context.Context, predicate repositories.ProductPredicate) (*entities.PriceStats, error) {
	ctx, done := a.start(ctx, "AggregatePrice")
	stats, err := a.next.AggregatePrice(ctx, predicate)
	done(err)
	return stats, err
}

func (a *ProductQueryAdapter) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "ProductQuery."+operation)
	observability.SetSpanAttributes(span, append(attrs, attribute.String("catalog.backend", a.backend))...)
	start := time.Now()

	return ctx, func(err error) {
		observability.RecordError(span, err)
		observability.RecordQueryMetric(ctx, a.metrics, a.backend, operation, time.Since(start))
		span.End()
	}
}
