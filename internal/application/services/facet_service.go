package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	"github.com/storefront/catalog/internal/infrastructure/observability"
	"github.com/storefront/catalog/internal/loaders"
	apperrors "github.com/storefront/catalog/pkg/errors"
)

// MetadataFacetOption registers a product metadata key as a facet
type MetadataFacetOption struct {
	Key   string
	Label string
}

// FacetOptions configures facet aggregation
type FacetOptions struct {
	Metadata       []MetadataFacetOption
	PriceStep      float64
	MaxFacetValues int
}

// FacetDefinitions returns the ordered facet configuration: brand, tags,
// availability, each registered metadata key, then price.
func FacetDefinitions(metadata []MetadataFacetOption) []entities.FacetDefinition {
	defs := []entities.FacetDefinition{
		{
			Field:           entities.FacetField{Kind: entities.FacetKindBrand},
			Label:           "Brand",
			AggregationType: entities.AggregationTerms,
			DisplayType:     entities.DisplayCheckbox,
		},
		{
			Field:           entities.FacetField{Kind: entities.FacetKindTags},
			Label:           "Tags",
			AggregationType: entities.AggregationTerms,
			DisplayType:     entities.DisplayCheckbox,
		},
		{
			Field:           entities.FacetField{Kind: entities.FacetKindAvailability},
			Label:           "Availability",
			AggregationType: entities.AggregationTerms,
			DisplayType:     entities.DisplayToggle,
		},
	}

	for _, m := range metadata {
		label := m.Label
		if label == "" {
			label = m.Key
		}
		defs = append(defs, entities.FacetDefinition{
			Field:           entities.MetadataField(m.Key),
			Label:           label,
			AggregationType: entities.AggregationTerms,
			DisplayType:     entities.DisplayCheckbox,
		})
	}

	return append(defs, entities.FacetDefinition{
		Field:           entities.FacetField{Kind: entities.FacetKindPrice},
		Label:           "Price",
		AggregationType: entities.AggregationRange,
		DisplayType:     entities.DisplaySlider,
	})
}

// FacetService computes the facet aggregations of a category listing. Each
// facet is counted under every active filter except its own, so the options
// of a facet stay visible while one of them is selected.
type FacetService struct {
	catalog     repositories.CatalogRepository
	products    repositories.ProductQueryRepository
	normalizer  *FilterNormalizer
	definitions []entities.FacetDefinition
	priceStep   float64
	maxValues   int
}

// NewFacetService creates a new facet service
func NewFacetService(
	catalog repositories.CatalogRepository,
	products repositories.ProductQueryRepository,
	normalizer *FilterNormalizer,
	opts FacetOptions,
) *FacetService {
	if opts.PriceStep <= 0 {
		opts.PriceStep = 1
	}
	if opts.MaxFacetValues < 1 {
		opts.MaxFacetValues = 50
	}
	return &FacetService{
		catalog:     catalog,
		products:    products,
		normalizer:  normalizer,
		definitions: FacetDefinitions(opts.Metadata),
		priceStep:   opts.PriceStep,
		maxValues:   opts.MaxFacetValues,
	}
}

// GetCategoryFacets returns the facets of a category under the given filters
func (s *FacetService) GetCategoryFacets(ctx context.Context, req entities.CategoryFacetsRequest) (*entities.FacetsResponse, error) {
	ctx, span := observability.StartSpan(ctx, "FacetService.GetCategoryFacets")
	defer span.End()

	categoryID := strings.TrimSpace(req.CategoryID)
	if categoryID == "" {
		return nil, apperrors.NewValidationError("category_id is required")
	}
	observability.SetSpanAttributes(span, attribute.String("catalog.category_id", categoryID))

	filters := s.normalizer.Normalize(req.Filters)
	predicate, err := resolvePredicate(ctx, s.catalog, categoryID, req.BrandID, req.SearchQuery, filters)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	resp := &entities.FacetsResponse{
		CategoryID:     categoryID,
		Facets:         []entities.FacetAggregation{},
		AppliedFilters: filters,
	}

	categoryTotal, err := s.products.CountProducts(ctx, repositories.ProductPredicate{CategoryID: categoryID})
	if err != nil {
		return nil, s.queryFailed(ctx, span, categoryID, err)
	}
	if categoryTotal == 0 {
		return resp, nil
	}

	if !predicate.MatchesNothing() {
		resp.TotalProducts, err = s.products.CountProducts(ctx, predicate)
		if err != nil {
			return nil, s.queryFailed(ctx, span, categoryID, err)
		}
	}

	brandID := strings.TrimSpace(req.BrandID)
	for _, def := range s.definitions {
		facetPredicate := withoutFacet(predicate, def.Field)

		var (
			agg *entities.FacetAggregation
			err error
		)
		if def.AggregationType == entities.AggregationRange {
			agg, err = s.rangeFacet(ctx, def, facetPredicate)
		} else {
			selected := filters.Selected(def.Field)
			if def.Field.Kind == entities.FacetKindBrand && brandID != "" {
				selected = []string{brandID}
			}
			agg, err = s.termsFacet(ctx, def, facetPredicate, selected)
		}
		if err != nil {
			return nil, s.queryFailed(ctx, span, categoryID, err)
		}
		if agg != nil {
			resp.Facets = append(resp.Facets, *agg)
		}
	}

	return resp, nil
}

func (s *FacetService) termsFacet(ctx context.Context, def entities.FacetDefinition, predicate repositories.ProductPredicate, selected []string) (*entities.FacetAggregation, error) {
	var buckets []entities.FacetBucket
	if !predicate.MatchesNothing() {
		var err error
		buckets, err = s.products.AggregateTerms(ctx, predicate, def.Field, s.maxValues)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Value < buckets[j].Value
	})

	isSelected := make(map[string]bool, len(selected))
	for _, v := range selected {
		isSelected[v] = true
	}

	values := make([]entities.FacetValue, 0, len(buckets)+len(selected))
	seen := make(map[string]bool, len(buckets))
	for _, b := range buckets {
		if b.Value == "" || b.Count <= 0 || seen[b.Value] {
			continue
		}
		seen[b.Value] = true
		values = append(values, entities.FacetValue{
			Value:    b.Value,
			Count:    b.Count,
			Selected: isSelected[b.Value],
		})
	}
	for _, v := range selected {
		if !seen[v] {
			seen[v] = true
			values = append(values, entities.FacetValue{Value: v, Count: 0, Selected: true})
		}
	}

	if len(values) == 0 {
		return nil, nil
	}

	s.applyLabels(ctx, def.Field, values)

	return &entities.FacetAggregation{
		FacetKey:        def.Field.Key(),
		FacetLabel:      def.Label,
		AggregationType: def.AggregationType,
		DisplayType:     def.DisplayType,
		Values:          values,
	}, nil
}

func (s *FacetService) rangeFacet(ctx context.Context, def entities.FacetDefinition, predicate repositories.ProductPredicate) (*entities.FacetAggregation, error) {
	if predicate.MatchesNothing() {
		return nil, nil
	}
	stats, err := s.products.AggregatePrice(ctx, predicate)
	if err != nil {
		return nil, err
	}
	if stats == nil || stats.Count == 0 {
		return nil, nil
	}

	return &entities.FacetAggregation{
		FacetKey:        def.Field.Key(),
		FacetLabel:      def.Label,
		AggregationType: def.AggregationType,
		DisplayType:     def.DisplayType,
		Range: &entities.FacetRange{
			Min:  math.Floor(stats.Min/s.priceStep) * s.priceStep,
			Max:  math.Ceil(stats.Max/s.priceStep) * s.priceStep,
			Step: s.priceStep,
		},
	}, nil
}

func (s *FacetService) applyLabels(ctx context.Context, field entities.FacetField, values []entities.FacetValue) {
	var names map[string]string
	switch field.Kind {
	case entities.FacetKindBrand:
		l := loaders.For(ctx)
		if l == nil {
			l = loaders.NewLoaders(s.catalog)
		}
		ids := make([]string, len(values))
		for i, v := range values {
			ids[i] = v.Value
		}
		names = l.BrandNames(ctx, ids)
	case entities.FacetKindAvailability:
		names = entities.AvailabilityLabels
	}

	for i := range values {
		values[i].Label = values[i].Value
		if name, ok := names[values[i].Value]; ok && name != "" {
			values[i].Label = name
		}
	}
}

func (s *FacetService) queryFailed(ctx context.Context, span trace.Span, categoryID string, err error) error {
	observability.RecordError(span, err)
	observability.LoggerFromContext(ctx).Error().Err(err).
		Str("category_id", categoryID).
		Msg("facet aggregation failed")
	return apperrors.WrapExternal("failed to aggregate category facets", err)
}

// withoutFacet drops a facet's own constraint from the predicate
func withoutFacet(predicate repositories.ProductPredicate, field entities.FacetField) repositories.ProductPredicate {
	out := predicate
	if field.Kind == entities.FacetKindBrand {
		out.ProductIDs = nil
		return out
	}
	out.Filters = predicate.Filters.Without(field)
	return out
}
