package vectorstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"expenseindex/internal/apperr"
	"expenseindex/internal/embedder"
	"expenseindex/internal/model"
)

// Memory is an in-process VectorStore used by tests. Search performs a
// brute-force cosine scan.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	rows      map[string]model.Fragment // fragmentID -> row
}

// NewMemory builds an empty in-memory store.
func NewMemory(dimension int) *Memory {
	return &Memory{dimension: dimension, rows: map[string]model.Fragment{}}
}

func (m *Memory) Dimension() int { return m.dimension }

func (m *Memory) Close() error { return nil }

func (m *Memory) Upsert(_ context.Context, rows []model.Fragment) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for _, f := range rows {
		if strings.TrimSpace(f.Content) == "" {
			continue
		}
		m.rows[f.FragmentID] = f
		ids = append(ids, f.FragmentID)
	}
	return ids, nil
}

func (m *Memory) Search(_ context.Context, queryVector []float32, tenant string, k int, filters Filters, threshold float64) ([]SearchResult, error) {
	if strings.TrimSpace(tenant) == "" {
		return nil, apperr.Wrap(apperr.KindBadRequest, "search requires a tenant", nil)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, f := range m.rows {
		if f.Tenant != tenant {
			continue
		}
		if !matches(f, filters) {
			continue
		}
		score := similarityFromCosine(embedder.CosineSimilarity(queryVector, f.Vector))
		if score < threshold {
			continue
		}
		results = append(results, SearchResult{Fragment: f, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *Memory) GetByDocument(_ context.Context, documentID string) ([]model.Fragment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Fragment
	for _, f := range m.rows {
		if f.DocumentID == documentID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (m *Memory) Delete(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range m.rows {
		if f.DocumentID == documentID {
			delete(m.rows, id)
		}
	}
	return nil
}

func (m *Memory) Stats(_ context.Context, tenant string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := map[string]struct{}{}
	merchants := map[string]struct{}{}
	total := 0
	for _, f := range m.rows {
		if tenant != "" && f.Tenant != tenant {
			continue
		}
		total++
		docs[f.DocumentID] = struct{}{}
		if f.Merchant != "" {
			merchants[f.Merchant] = struct{}{}
		}
	}
	return Stats{TotalChunks: total, UniqueDocuments: len(docs), UniqueBusinesses: len(merchants)}, nil
}

func matches(f model.Fragment, filters Filters) bool {
	if filters.Category != "" && f.Category != filters.Category {
		return false
	}
	if filters.Merchant != "" && !strings.Contains(strings.ToLower(f.Merchant), strings.ToLower(filters.Merchant)) {
		return false
	}
	if filters.DocumentType != "" && f.DocumentType != filters.DocumentType {
		return false
	}
	if filters.Amount != nil && !amountMatches(f.Amount, *filters.Amount) {
		return false
	}
	for k, v := range filters.MetadataContains {
		needle := strings.ToLower(k + `":"` + v)
		if !strings.Contains(strings.ToLower(f.MetadataJSON), needle) {
			return false
		}
	}
	return true
}

func amountMatches(amount float64, af AmountFilter) bool {
	switch af.Op {
	case model.OpLessThan:
		return amount < af.Value
	case model.OpLessEqual:
		return amount <= af.Value
	case model.OpGreaterThan:
		return amount > af.Value
	case model.OpGreaterEqual:
		return amount >= af.Value
	default:
		return amount == af.Value
	}
}
