package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseindex/internal/model"
)

func TestMemory_UpsertDropsEmptyContent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(4)

	ids, err := store.Upsert(ctx, []model.Fragment{
		{FragmentID: "f1", Tenant: "acme", DocumentID: "d1", Content: "hello", Vector: []float32{1, 0, 0, 0}},
		{FragmentID: "f2", Tenant: "acme", DocumentID: "d1", Content: "   ", Vector: []float32{0, 1, 0, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, ids)
}

func TestMemory_SearchRequiresTenant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(4)

	_, err := store.Search(ctx, []float32{1, 0, 0, 0}, "", 5, Filters{}, 0)
	assert.Error(t, err)
}

func TestMemory_SearchRanksBySimilarity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(4)

	_, err := store.Upsert(ctx, []model.Fragment{
		{FragmentID: "close", Tenant: "acme", DocumentID: "d1", Content: "a", Vector: []float32{1, 0, 0, 0}, Category: "meals"},
		{FragmentID: "far", Tenant: "acme", DocumentID: "d1", Content: "b", Vector: []float32{0, 1, 0, 0}, Category: "travel"},
		{FragmentID: "other-tenant", Tenant: "globex", DocumentID: "d2", Content: "c", Vector: []float32{1, 0, 0, 0}},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, "acme", 5, Filters{}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "close", results[0].Fragment.FragmentID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemory_SearchAppliesDistanceBasedSimilarity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(4)

	_, err := store.Upsert(ctx, []model.Fragment{
		{FragmentID: "identical", Tenant: "acme", DocumentID: "d1", Content: "a", Vector: []float32{1, 0, 0, 0}},
		{FragmentID: "orthogonal", Tenant: "acme", DocumentID: "d1", Content: "b", Vector: []float32{0, 1, 0, 0}},
		{FragmentID: "opposite", Tenant: "acme", DocumentID: "d1", Content: "c", Vector: []float32{-1, 0, 0, 0}},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, "acme", 5, Filters{}, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byID := map[string]float64{}
	for _, r := range results {
		byID[r.Fragment.FragmentID] = r.Score
	}
	assert.InDelta(t, 1.0, byID["identical"], 1e-9)
	assert.InDelta(t, 0.5, byID["orthogonal"], 1e-9)
	assert.InDelta(t, 0.0, byID["opposite"], 1e-9)
}

func TestMemory_SearchFiltersByCategoryAndAmount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(4)

	_, err := store.Upsert(ctx, []model.Fragment{
		{FragmentID: "f1", Tenant: "acme", DocumentID: "d1", Content: "a", Vector: []float32{1, 0, 0, 0}, Category: "meals", Amount: 42},
		{FragmentID: "f2", Tenant: "acme", DocumentID: "d1", Content: "b", Vector: []float32{1, 0, 0, 0}, Category: "travel", Amount: 500},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, "acme", 5, Filters{
		Category: "meals",
		Amount:   &AmountFilter{Op: model.OpLessThan, Value: 100},
	}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "f1", results[0].Fragment.FragmentID)
}

func TestMemory_GetByDocumentOrdersByChunkIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(4)

	_, err := store.Upsert(ctx, []model.Fragment{
		{FragmentID: "f2", Tenant: "acme", DocumentID: "d1", Content: "second", ChunkIndex: 1, Vector: []float32{0, 0, 0, 1}},
		{FragmentID: "f1", Tenant: "acme", DocumentID: "d1", Content: "first", ChunkIndex: 0, Vector: []float32{0, 0, 0, 1}},
	})
	require.NoError(t, err)

	frags, err := store.GetByDocument(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "first", frags[0].Content)
	assert.Equal(t, "second", frags[1].Content)
}

func TestMemory_DeleteRemovesDocumentRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(4)

	_, err := store.Upsert(ctx, []model.Fragment{
		{FragmentID: "f1", Tenant: "acme", DocumentID: "d1", Content: "a", Vector: []float32{1, 0, 0, 0}},
	})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "d1"))

	stats, err := store.Stats(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalChunks)
}

func TestMemory_StatsCountsUniqueDocumentsAndMerchants(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(4)

	_, err := store.Upsert(ctx, []model.Fragment{
		{FragmentID: "f1", Tenant: "acme", DocumentID: "d1", Content: "a", Vector: []float32{1, 0, 0, 0}, Merchant: "Acme Co"},
		{FragmentID: "f2", Tenant: "acme", DocumentID: "d1", Content: "b", Vector: []float32{1, 0, 0, 0}, Merchant: "Acme Co"},
		{FragmentID: "f3", Tenant: "acme", DocumentID: "d2", Content: "c", Vector: []float32{1, 0, 0, 0}, Merchant: "Globex"},
	})
	require.NoError(t, err)

	stats, err := store.Stats(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.UniqueDocuments)
	assert.Equal(t, 2, stats.UniqueBusinesses)
}
