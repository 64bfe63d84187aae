package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseindex/internal/config"
	"expenseindex/internal/embedder"
	"expenseindex/internal/model"
	"expenseindex/internal/vectorstore"
)

func seedFragment(t *testing.T, store *vectorstore.Memory, emb embedder.Embedder, tenant, docID, content string, amount float64, merchant string) {
	t.Helper()
	ctx := context.Background()
	vectors, err := emb.EmbedBatch(ctx, []string{content})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, []model.Fragment{{
		FragmentID: docID + "-0",
		Tenant:     tenant,
		DocumentID: docID,
		Content:    content,
		Vector:     vectors[0],
		Amount:     amount,
		Merchant:   merchant,
	}})
	require.NoError(t, err)
}

func testEngine(t *testing.T) (*Engine, *vectorstore.Memory, embedder.Embedder) {
	t.Helper()
	store := vectorstore.NewMemory(384)
	emb := embedder.NewDeterministic(384, 0)
	cfg := config.Config{SimilarityThresholdDefault: 0.3}
	e := New(cfg, store, emb)
	return e, store, emb
}

func TestSearch_ReturnsMatchWhenEnhancementDisabled(t *testing.T) {
	t.Parallel()
	e, store, emb := testEngine(t)
	seedFragment(t, store, emb, "acme", "doc-1", "coffee at starbucks today", 4.5, "Starbucks")

	disable := false
	resp, err := e.Search(context.Background(), Request{
		Query: "coffee at starbucks today", Tenant: "acme", Limit: 10, EnhanceQuery: &disable,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].Content, "**starbucks**")
}

func TestSearch_ScopesResultsToTenant(t *testing.T) {
	t.Parallel()
	e, store, emb := testEngine(t)
	seedFragment(t, store, emb, "t1", "doc-1", "latte from the corner cafe", 5, "Corner Cafe")
	seedFragment(t, store, emb, "t2", "doc-2", "latte from the corner cafe", 5, "Corner Cafe")

	disable := false
	resp, err := e.Search(context.Background(), Request{
		Query: "latte from the corner cafe", Tenant: "t1", Limit: 10, EnhanceQuery: &disable,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
}

func TestSearch_ExtractsAmountFilterFromQuery(t *testing.T) {
	t.Parallel()
	e, store, emb := testEngine(t)
	seedFragment(t, store, emb, "acme", "doc-60", "amazon", 60, "Amazon")
	seedFragment(t, store, emb, "acme", "doc-40", "amazon", 40, "Amazon")

	resp, err := e.Search(context.Background(), Request{
		Query: "amazon amount > 50", Tenant: "acme", Limit: 10,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.SearchMetadata.FiltersApplied, "amount_filter")
	for _, r := range resp.Results {
		assert.Equal(t, "doc-60", r.DocumentID)
	}
}

func TestSearch_LimitZeroReturnsEmptyWithoutError(t *testing.T) {
	t.Parallel()
	e, store, emb := testEngine(t)
	seedFragment(t, store, emb, "acme", "doc-1", "any content", 1, "Any")

	resp, err := e.Search(context.Background(), Request{Query: "any", Tenant: "acme", Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.GreaterOrEqual(t, resp.ProcessingTimeSeconds, 0.0)
}

func TestSearch_RejectsMissingTenant(t *testing.T) {
	t.Parallel()
	e, _, _ := testEngine(t)
	_, err := e.Search(context.Background(), Request{Query: "coffee", Limit: 10})
	assert.Error(t, err)
}

func TestSearch_RejectsEmptyQuery(t *testing.T) {
	t.Parallel()
	e, _, _ := testEngine(t)
	_, err := e.Search(context.Background(), Request{Tenant: "acme", Limit: 10})
	assert.Error(t, err)
}

func TestSearch_HybridMethodBlendsKeywordScore(t *testing.T) {
	t.Parallel()
	e, store, emb := testEngine(t)
	seedFragment(t, store, emb, "acme", "doc-1", "starbucks coffee", 4.5, "Starbucks")

	disable := false
	resp, err := e.Search(context.Background(), Request{
		Query: "starbucks coffee", Tenant: "acme", Limit: 10,
		SearchMethod: "hybrid", EnhanceQuery: &disable,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "hybrid", resp.SearchMetadata.SearchMethod)
	assert.Equal(t, 1.0, resp.Results[0].Score)
}
