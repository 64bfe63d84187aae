package httpapi

import (
	"expenseindex/internal/model"
	"expenseindex/internal/query"
)

func amountOpFromWire(s string) model.AmountFilterOp {
	switch s {
	case "<":
		return model.OpLessThan
	case "<=":
		return model.OpLessEqual
	case ">":
		return model.OpGreaterThan
	case ">=":
		return model.OpGreaterEqual
	default:
		return model.OpEqual
	}
}

// searchResponseWire flattens a query.Response into the envelope shape
// fixed on the wire.
func searchResponseWire(resp query.Response) map[string]any {
	results := make([]map[string]any, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = map[string]any{
			"fragment_id":   r.FragmentID,
			"document_id":   r.DocumentID,
			"content":       r.Content,
			"score":         r.Score,
			"chunk_index":   r.ChunkIndex,
			"category":      r.Category,
			"merchant":      r.Merchant,
			"amount":        r.Amount,
			"expense_date":  r.ExpenseDate,
			"document_type": r.DocumentType,
			"metadata":      r.Metadata,
		}
	}

	return map[string]any{
		"query":                   resp.Query,
		"results":                 results,
		"total_results":           resp.TotalResults,
		"processing_time_seconds": resp.ProcessingTimeSeconds,
		"search_metadata": map[string]any{
			"original_query":          resp.SearchMetadata.OriginalQuery,
			"enhanced_query":          resp.SearchMetadata.EnhancedQuery,
			"search_method":           resp.SearchMetadata.SearchMethod,
			"filters_applied":         resp.SearchMetadata.FiltersApplied,
			"total_raw_results":       resp.SearchMetadata.TotalRawResults,
			"post_processing_enabled": resp.SearchMetadata.PostProcessingEnabled,
			"deduplication_enabled":   resp.SearchMetadata.DeduplicationEnabled,
		},
	}
}
