package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/catalog/internal/domain/entities"
)

type recordingIndex struct {
	ids    []string
	failOn string
}

func (r *recordingIndex) IndexProduct(_ context.Context, p *entities.Product) error {
	if p.ID == r.failOn {
		return errors.New("index rejected document")
	}
	r.ids = append(r.ids, p.ID)
	return nil
}

func TestProductIndexer_IndexAll(t *testing.T) {
	catalog := newFakeCatalog()
	index := &recordingIndex{}
	indexer := NewProductIndexer(catalog, index, 4)

	indexed, failed, err := indexer.IndexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, indexed)
	assert.Equal(t, 0, failed)
	assert.ElementsMatch(t, []string{"p1", "p2", "p3", "p4", "p5", "p6"}, index.ids)
	assert.Equal(t, 2, catalog.queryCalls)
}

func TestProductIndexer_SkipsFailedDocuments(t *testing.T) {
	index := &recordingIndex{failOn: "p3"}
	indexed, failed, err := NewProductIndexer(newFakeCatalog(), index, 0).IndexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, indexed)
	assert.Equal(t, 1, failed)
	assert.NotContains(t, index.ids, "p3")
}

func TestProductIndexer_SourceError(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.queryErr = errBackendDown

	_, _, err := NewProductIndexer(catalog, &recordingIndex{}, 10).IndexAll(context.Background())
	assert.ErrorIs(t, err, errBackendDown)
}

func TestProductIndexer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewProductIndexer(newFakeCatalog(), &recordingIndex{}, 10).IndexAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProductIndexer_IndexCategory(t *testing.T) {
	index := &recordingIndex{}
	indexed, failed, err := NewProductIndexer(newFakeCatalog(), index, 2).IndexCategory(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, 1, indexed)
	assert.Zero(t, failed)
	assert.Equal(t, []string{"p6"}, index.ids)

	_, _, err = NewProductIndexer(newFakeCatalog(), index, 2).IndexCategory(context.Background(), "")
	assert.Error(t, err)
}
