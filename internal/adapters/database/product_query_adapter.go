package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	"github.com/storefront/catalog/internal/infrastructure/clients/postgres"
	apperrors "github.com/storefront/catalog/pkg/errors"
)

// ProductStatusPublished is the only product status visible on the storefront
const ProductStatusPublished = "published"

// ProductQueryAdapter resolves product predicates against PostgreSQL
type ProductQueryAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProductQueryAdapter creates a new product query adapter
func NewProductQueryAdapter(client *postgres.Client) *ProductQueryAdapter {
	return &ProductQueryAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.ProductQueryRepository = (*ProductQueryAdapter)(nil)

var productColumns = []interface{}{
	goqu.I("products.id"),
	goqu.I("products.title"),
	goqu.I("products.handle"),
	goqu.I("products.description"),
	goqu.I("products.thumbnail"),
	goqu.I("products.tags"),
	goqu.I("products.availability"),
	goqu.I("products.price"),
	goqu.I("products.currency_code"),
	goqu.I("products.metadata"),
	goqu.L("ARRAY(SELECT pc.category_id FROM product_categories pc WHERE pc.product_id = products.id)").As("category_ids"),
	goqu.L("ARRAY(SELECT pb.brand_id FROM product_brands pb WHERE pb.product_id = products.id)").As("brand_ids"),
	goqu.I("products.created_at"),
	goqu.I("products.updated_at"),
}

// QueryProducts returns one page of matching products. Filters are applied to
// the whole product set first; the count is taken before pagination.
func (a *ProductQueryAdapter) QueryProducts(ctx context.Context, q repositories.ProductQuery) ([]*entities.Product, int, error) {
	filtered := a.filtered(q.Predicate)

	total, err := a.count(ctx, filtered)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 || q.Offset >= total {
		return []*entities.Product{}, total, nil
	}

	ds := filtered.Select(productColumns...).Order(orderExpressions(q.Order)...)
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}
	if q.Offset > 0 {
		ds = ds.Offset(uint(q.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build products query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to query products", err)
	}
	defer rows.Close()

	products := []*entities.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, apperrors.NewInternalError("failed to scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to iterate products", err)
	}

	return products, total, nil
}

// CountProducts counts the products matching a predicate
func (a *ProductQueryAdapter) CountProducts(ctx context.Context, predicate repositories.ProductPredicate) (int, error) {
	return a.count(ctx, a.filtered(predicate))
}

// AggregateTerms counts distinct matching products per facet value, most
// frequent first.
func (a *ProductQueryAdapter) AggregateTerms(ctx context.Context, predicate repositories.ProductPredicate, field entities.FacetField, limit int) ([]entities.FacetBucket, error) {
	valueExpr, err := facetValueExpression(field)
	if err != nil {
		return nil, apperrors.NewInternalError("unsupported facet", err)
	}

	inner := a.filtered(predicate).Select(
		goqu.I("products.id").As("product_id"),
		valueExpr.As("facet_value"),
	)

	ds := a.db.From(inner.As("facet_data")).
		Select(
			goqu.I("facet_value"),
			goqu.COUNT(goqu.DISTINCT("product_id")).As("product_count"),
		).
		Where(
			goqu.I("facet_value").IsNotNull(),
			goqu.I("facet_value").Neq(""),
		).
		GroupBy(goqu.I("facet_value")).
		Order(goqu.I("product_count").Desc(), goqu.I("facet_value").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build facet query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate facet "+field.Key(), err)
	}
	defer rows.Close()

	buckets := []entities.FacetBucket{}
	for rows.Next() {
		var b entities.FacetBucket
		if err := rows.Scan(&b.Value, &b.Count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan facet bucket", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate facet buckets", err)
	}

	return buckets, nil
}

// AggregatePrice returns the price bounds over the matching products
func (a *ProductQueryAdapter) AggregatePrice(ctx context.Context, predicate repositories.ProductPredicate) (*entities.PriceStats, error) {
	query, args, err := a.filtered(predicate).Select(
		goqu.COALESCE(goqu.MIN("products.price"), 0).As("min_price"),
		goqu.COALESCE(goqu.MAX("products.price"), 0).As("max_price"),
		goqu.COUNT("*").As("product_count"),
	).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build price query", err)
	}

	stats := &entities.PriceStats{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&stats.Min, &stats.Max, &stats.Count)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate prices", err)
	}

	return stats, nil
}

// filtered returns the published products matching every constraint of the
// predicate. Values within one facet are ORed, facets are ANDed.
func (a *ProductQueryAdapter) filtered(pred repositories.ProductPredicate) *goqu.SelectDataset {
	ds := a.db.From(goqu.T("products")).
		Where(goqu.I("products.status").Eq(ProductStatusPublished))

	if pred.CategoryID != "" {
		ds = ds.Where(goqu.I("products.id").In(
			a.db.From("product_categories").
				Select("product_id").
				Where(goqu.Ex{"category_id": pred.CategoryID}),
		))
	}

	if pred.ProductIDs != nil {
		if len(pred.ProductIDs) == 0 {
			ds = ds.Where(goqu.L("FALSE"))
		} else {
			ds = ds.Where(goqu.I("products.id").In(pred.ProductIDs))
		}
	}

	if pred.Search != "" {
		pattern := "%" + escapeLike(pred.Search) + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("products.title").ILike(pattern),
			goqu.I("products.description").ILike(pattern),
		))
	}

	f := pred.Filters
	if len(f.Tags) > 0 {
		ds = ds.Where(goqu.L("products.tags && ?", pq.Array(f.Tags)))
	}
	if len(f.Availability) > 0 {
		ds = ds.Where(goqu.I("products.availability").In(f.Availability))
	}
	if f.Price.Min != nil {
		ds = ds.Where(goqu.I("products.price").Gte(*f.Price.Min))
	}
	if f.Price.Max != nil {
		ds = ds.Where(goqu.I("products.price").Lte(*f.Price.Max))
	}

	keys := make([]string, 0, len(f.Metadata))
	for key, values := range f.Metadata {
		if len(values) > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		ds = ds.Where(goqu.L("products.metadata ->> ? = ANY(?)", key, pq.Array(f.Metadata[key])))
	}

	return ds
}

func (a *ProductQueryAdapter) count(ctx context.Context, ds *goqu.SelectDataset) (int, error) {
	query, args, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperrors.NewInternalError("failed to count products", err)
	}
	return total, nil
}

func facetValueExpression(field entities.FacetField) (exp.LiteralExpression, error) {
	switch field.Kind {
	case entities.FacetKindBrand:
		return goqu.L("unnest(ARRAY(SELECT pb.brand_id FROM product_brands pb WHERE pb.product_id = products.id))"), nil
	case entities.FacetKindTags:
		return goqu.L("unnest(products.tags)"), nil
	case entities.FacetKindAvailability:
		return goqu.L("products.availability"), nil
	case entities.FacetKindMetadata:
		return goqu.L("products.metadata ->> ?", field.MetadataKey), nil
	}
	return nil, fmt.Errorf("no terms aggregation for facet %q", field.Key())
}

// orderExpressions maps a product order to SQL. The zero order lists newest
// products first; the id tie-break keeps pages stable.
func orderExpressions(order entities.ProductOrder) []exp.OrderedExpression {
	if order.IsZero() {
		return []exp.OrderedExpression{
			goqu.I("products.created_at").Desc(),
			goqu.I("products.id").Asc(),
		}
	}

	col := goqu.I("products." + order.Field)
	primary := col.Asc()
	if order.Descending {
		primary = col.Desc()
	}
	return []exp.OrderedExpression{primary, goqu.I("products.id").Asc()}
}

func scanProduct(rows *sql.Rows) (*entities.Product, error) {
	var (
		p            entities.Product
		handle       sql.NullString
		description  sql.NullString
		thumbnail    sql.NullString
		currencyCode sql.NullString
		availability sql.NullString
		metadata     []byte
	)

	err := rows.Scan(
		&p.ID,
		&p.Title,
		&handle,
		&description,
		&thumbnail,
		pq.Array(&p.Tags),
		&availability,
		&p.Price,
		&currencyCode,
		&metadata,
		pq.Array(&p.CategoryIDs),
		pq.Array(&p.BrandIDs),
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Handle = handle.String
	p.Description = description.String
	p.Thumbnail = thumbnail.String
	p.CurrencyCode = currencyCode.String
	p.Availability = availability.String
	if p.Tags == nil {
		p.Tags = []string{}
	}

	p.Metadata, err = decodeMetadata(metadata)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// decodeMetadata flattens a jsonb object into string values. Nested objects
// and arrays are kept as their JSON text.
func decodeMetadata(raw []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(raw) == 0 {
		return out, nil
	}

	var values map[string]interface{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("invalid product metadata: %w", err)
	}

	for key, v := range values {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			out[key] = t
		case float64:
			out[key] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(t)
		default:
			encoded, err := json.Marshal(t)
			if err != nil {
				return nil, err
			}
			out[key] = string(encoded)
		}
	}
	return out, nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
