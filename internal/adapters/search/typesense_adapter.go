package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	tsclient "github.com/storefront/catalog/internal/infrastructure/clients/typesense"
	apperrors "github.com/storefront/catalog/pkg/errors"
)

const (
	collectionName = tsclient.ProductsCollection
	queryBy        = "title,description"
)

// TypesenseAdapter resolves product predicates against the Typesense
// products collection and keeps that collection in sync
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements ProductQueryRepository
var _ repositories.ProductQueryRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// IndexProduct upserts a product document
func (a *TypesenseAdapter) IndexProduct(ctx context.Context, product *entities.Product) error {
	_, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, ProductDocument(product))
	if err != nil {
		return fmt.Errorf("failed to index product %s: %w", product.ID, err)
	}
	return nil
}

// DeleteProduct removes a product from the index
func (a *TypesenseAdapter) DeleteProduct(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(collectionName).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete product %s from index: %w", id, err)
	}
	return nil
}

// QueryProducts returns one page of matching products
func (a *TypesenseAdapter) QueryProducts(ctx context.Context, q repositories.ProductQuery) ([]*entities.Product, int, error) {
	params, ok := searchParams(q.Predicate)
	if !ok || q.Limit <= 0 {
		return []*entities.Product{}, 0, nil
	}

	params.Page = pointer.Int(q.Offset/q.Limit + 1)
	params.PerPage = pointer.Int(q.Limit)
	if sortBy := SortBy(q.Order); sortBy != "" {
		params.SortBy = pointer.String(sortBy)
	}

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, params)
	if err != nil {
		return nil, 0, apperrors.NewExternalError("failed to search products", err)
	}

	products, total := parseHits(result)
	return products, total, nil
}

// CountProducts counts the products matching a predicate
func (a *TypesenseAdapter) CountProducts(ctx context.Context, predicate repositories.ProductPredicate) (int, error) {
	params, ok := searchParams(predicate)
	if !ok {
		return 0, nil
	}
	params.PerPage = pointer.Int(0)

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, params)
	if err != nil {
		return 0, apperrors.NewExternalError("failed to count products", err)
	}
	if result.Found == nil {
		return 0, nil
	}
	return *result.Found, nil
}

// AggregateTerms counts matching products per value of a terms facet
func (a *TypesenseAdapter) AggregateTerms(ctx context.Context, predicate repositories.ProductPredicate, field entities.FacetField, limit int) ([]entities.FacetBucket, error) {
	fieldName, err := FacetFieldName(field)
	if err != nil {
		return nil, apperrors.NewInternalError("unsupported facet", err)
	}

	params, ok := searchParams(predicate)
	if !ok {
		return []entities.FacetBucket{}, nil
	}
	params.PerPage = pointer.Int(0)
	params.FacetBy = pointer.String(fieldName)
	if limit > 0 {
		params.MaxFacetValues = pointer.Int(limit)
	}

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, params)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to aggregate facet "+field.Key(), err)
	}

	return parseFacetBuckets(result, fieldName), nil
}

// AggregatePrice returns price bounds over the matching products
func (a *TypesenseAdapter) AggregatePrice(ctx context.Context, predicate repositories.ProductPredicate) (*entities.PriceStats, error) {
	params, ok := searchParams(predicate)
	if !ok {
		return &entities.PriceStats{}, nil
	}
	params.PerPage = pointer.Int(0)
	params.FacetBy = pointer.String("price")

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, params)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to aggregate prices", err)
	}

	return parsePriceStats(result), nil
}

// searchParams builds the shared query and filter for a predicate. It
// reports false when the predicate cannot match anything.
func searchParams(predicate repositories.ProductPredicate) (*api.SearchCollectionParams, bool) {
	filterBy, ok := BuildFilterBy(predicate)
	if !ok {
		return nil, false
	}

	q := strings.TrimSpace(predicate.Search)
	if q == "" {
		q = "*"
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String(queryBy),
	}
	if filterBy != "" {
		params.FilterBy = pointer.String(filterBy)
	}
	return params, true
}

// BuildFilterBy renders a predicate as a Typesense filter_by expression.
// Clauses are joined with && and multi-value clauses match any value.
func BuildFilterBy(predicate repositories.ProductPredicate) (string, bool) {
	if predicate.MatchesNothing() {
		return "", false
	}

	var clauses []string
	if predicate.CategoryID != "" {
		clauses = append(clauses, "category_ids:="+quoteValue(predicate.CategoryID))
	}
	if predicate.ProductIDs != nil {
		clauses = append(clauses, "id:="+quoteValues(predicate.ProductIDs))
	}

	f := predicate.Filters
	if len(f.Tags) > 0 {
		clauses = append(clauses, "tags:="+quoteValues(f.Tags))
	}
	if len(f.Availability) > 0 {
		clauses = append(clauses, "availability:="+quoteValues(f.Availability))
	}
	if f.Price.Min != nil {
		clauses = append(clauses, "price:>="+formatFloat(*f.Price.Min))
	}
	if f.Price.Max != nil {
		clauses = append(clauses, "price:<="+formatFloat(*f.Price.Max))
	}

	keys := make([]string, 0, len(f.Metadata))
	for key, values := range f.Metadata {
		if len(values) > 0 && entities.ValidMetadataKey(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		clauses = append(clauses, tsclient.MetadataFieldPrefix+key+":="+quoteValues(f.Metadata[key]))
	}

	return strings.Join(clauses, " && "), true
}

// SortBy renders a product order as a Typesense sort_by expression. The zero
// order yields "" so the collection's default sorting applies.
func SortBy(order entities.ProductOrder) string {
	if order.IsZero() {
		return ""
	}
	dir := "asc"
	if order.Descending {
		dir = "desc"
	}
	return order.Field + ":" + dir
}

// FacetFieldName maps a terms facet to its collection field
func FacetFieldName(field entities.FacetField) (string, error) {
	switch field.Kind {
	case entities.FacetKindBrand:
		return "brand_ids", nil
	case entities.FacetKindTags:
		return "tags", nil
	case entities.FacetKindAvailability:
		return "availability", nil
	case entities.FacetKindMetadata:
		if !entities.ValidMetadataKey(field.MetadataKey) {
			return "", fmt.Errorf("invalid metadata facet key %q", field.MetadataKey)
		}
		return tsclient.MetadataFieldPrefix + field.MetadataKey, nil
	}
	return "", fmt.Errorf("no terms aggregation for facet %q", field.Key())
}

// ProductDocument converts a product into its index document
func ProductDocument(p *entities.Product) map[string]interface{} {
	doc := map[string]interface{}{
		"id":            p.ID,
		"title":         p.Title,
		"description":   p.Description,
		"handle":        p.Handle,
		"thumbnail":     p.Thumbnail,
		"currency_code": p.CurrencyCode,
		"category_ids":  nonNil(p.CategoryIDs),
		"brand_ids":     nonNil(p.BrandIDs),
		"tags":          nonNil(p.Tags),
		"availability":  p.Availability,
		"price":         p.Price,
		"created_at":    p.CreatedAt.Unix(),
		"updated_at":    p.UpdatedAt.Unix(),
	}
	for key, value := range p.Metadata {
		if !entities.ValidMetadataKey(key) {
			continue
		}
		doc[tsclient.MetadataFieldPrefix+key] = value
	}
	return doc
}

func parseHits(result *api.SearchResult) ([]*entities.Product, int) {
	total := 0
	if result.Found != nil {
		total = *result.Found
	}

	products := []*entities.Product{}
	if result.Hits == nil {
		return products, total
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		products = append(products, documentProduct(*hit.Document))
	}
	return products, total
}

func parseFacetBuckets(result *api.SearchResult, fieldName string) []entities.FacetBucket {
	buckets := []entities.FacetBucket{}
	if result.FacetCounts == nil {
		return buckets
	}
	for _, fc := range *result.FacetCounts {
		if fc.FieldName == nil || *fc.FieldName != fieldName || fc.Counts == nil {
			continue
		}
		for _, c := range *fc.Counts {
			if c.Value == nil || c.Count == nil {
				continue
			}
			buckets = append(buckets, entities.FacetBucket{Value: *c.Value, Count: *c.Count})
		}
	}
	return buckets
}

func parsePriceStats(result *api.SearchResult) *entities.PriceStats {
	stats := &entities.PriceStats{}
	if result.Found != nil {
		stats.Count = *result.Found
	}
	if stats.Count == 0 || result.FacetCounts == nil {
		return stats
	}
	for _, fc := range *result.FacetCounts {
		if fc.FieldName == nil || *fc.FieldName != "price" || fc.Stats == nil {
			continue
		}
		if fc.Stats.Min != nil {
			stats.Min = float64(*fc.Stats.Min)
		}
		if fc.Stats.Max != nil {
			stats.Max = float64(*fc.Stats.Max)
		}
	}
	return stats
}

func documentProduct(doc map[string]interface{}) *entities.Product {
	p := &entities.Product{
		ID:           stringField(doc, "id"),
		Title:        stringField(doc, "title"),
		Description:  stringField(doc, "description"),
		Handle:       stringField(doc, "handle"),
		Thumbnail:    stringField(doc, "thumbnail"),
		CurrencyCode: stringField(doc, "currency_code"),
		Availability: stringField(doc, "availability"),
		CategoryIDs:  stringsField(doc, "category_ids"),
		BrandIDs:     stringsField(doc, "brand_ids"),
		Tags:         stringsField(doc, "tags"),
		Metadata:     map[string]string{},
	}
	if v, ok := doc["price"].(float64); ok {
		p.Price = v
	}
	if v, ok := doc["created_at"].(float64); ok {
		p.CreatedAt = time.Unix(int64(v), 0).UTC()
	}
	if v, ok := doc["updated_at"].(float64); ok {
		p.UpdatedAt = time.Unix(int64(v), 0).UTC()
	}
	for key, value := range doc {
		if name, ok := strings.CutPrefix(key, tsclient.MetadataFieldPrefix); ok {
			if s, ok := value.(string); ok {
				p.Metadata[name] = s
			}
		}
	}
	return p
}

func stringField(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}

func stringsField(doc map[string]interface{}, key string) []string {
	out := []string{}
	items, _ := doc[key].([]interface{})
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// quoteValue wraps a filter value in backticks. Backticks cannot be escaped
// inside a Typesense filter value and are removed.
func quoteValue(v string) string {
	return "`" + strings.ReplaceAll(v, "`", "") + "`"
}

func quoteValues(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteValue(v)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
