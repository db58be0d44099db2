// Package pagination builds the list envelopes shared by every list endpoint
package pagination

import (
	"bytes"
	"encoding/json"
)

// DefaultDataKey is used when no data key is supplied
const DefaultDataKey = "items"

var reservedKeys = map[string]bool{
	"count":          true,
	"limit":          true,
	"offset":         true,
	"estimate_count": true,
}

// Params are the inputs of ToPaginatedResponse
type Params[T any] struct {
	Data          []T
	Count         int
	Limit         int
	Offset        int
	DataKey       string
	EstimateCount *int
}

// Response is a list envelope. It marshals to
// {"<DataKey>": [...], "count": n, "limit": n, "offset": n[, "estimate_count": n]}
type Response[T any] struct {
	DataKey       string
	Data          []T
	Count         int
	Limit         int
	Offset        int
	EstimateCount *int
}

// ToPaginatedResponse wraps a page of data with its pagination numbers. It
// never fails: a nil slice becomes an empty list, and an empty or reserved
// data key falls back to DefaultDataKey
func ToPaginatedResponse[T any](p Params[T]) Response[T] {
	key := p.DataKey
	if key == "" || reservedKeys[key] {
		key = DefaultDataKey
	}
	data := p.Data
	if data == nil {
		data = []T{}
	}
	return Response[T]{
		DataKey:       key,
		Data:          data,
		Count:         p.Count,
		Limit:         p.Limit,
		Offset:        p.Offset,
		EstimateCount: p.EstimateCount,
	}
}

// MarshalJSON writes the envelope with the data key first and omits
// estimate_count entirely when it was not supplied
func (r Response[T]) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = []T{}
	}
	key := r.DataKey
	if key == "" {
		key = DefaultDataKey
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeField(&buf, key, data, false); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "count", r.Count, true); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "limit", r.Limit, true); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "offset", r.Offset, true); err != nil {
		return nil, err
	}
	if r.EstimateCount != nil {
		if err := writeField(&buf, "estimate_count", *r.EstimateCount, true); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, value any, comma bool) error {
	if comma {
		buf.WriteByte(',')
	}
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// PageMetadata is the pagination block of page-number based listings
type PageMetadata struct {
	Total       int `json:"total"`
	Limit       int `json:"limit"`
	Offset      int `json:"offset"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
}

// NewPageMetadata computes totalPages = ceil(total/limit) and
// currentPage = floor(offset/limit)+1. A non-positive limit yields zero pages
func NewPageMetadata(total, limit, offset int) PageMetadata {
	meta := PageMetadata{
		Total:       total,
		Limit:       limit,
		Offset:      offset,
		CurrentPage: 1,
	}
	if limit <= 0 {
		return meta
	}
	if total > 0 {
		meta.TotalPages = (total + limit - 1) / limit
	}
	if offset > 0 {
		meta.CurrentPage = offset/limit + 1
	}
	return meta
}

// OffsetForPage converts a 1-based page number to a row offset
func OffsetForPage(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	return (page - 1) * pageSize
}
