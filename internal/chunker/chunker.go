// Package chunker splits parsed document text into fragments using a
// strategy selected by document class.
package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"expenseindex/internal/embedder"
	"expenseindex/internal/model"
)

// Chunk is one fragment produced by a strategy, before it is attached to a
// document and persisted as a model.Fragment.
type Chunk struct {
	Text             string
	ChunkType        model.ChunkType
	StartChar        int
	EndChar          int
	ParentChunkIndex int // -1 unless ChunkType is hierarchical_child
}

// Strategy produces chunks from normalised document text.
type Strategy interface {
	Chunk(text string) ([]Chunk, error)
}

// Params configures the strategies; zero values mean "use the routing
// table's default for this field".
type Params struct {
	Target            int
	Overlap           int
	PreserveSentences bool

	SimilarityThreshold float64
	MinChunkSize        int
	MaxChunkSize        int

	ParentTarget int
	ChildTarget  int
}

// Route picks the strategy and parameters for a document class, per the
// routing table.
func Route(class model.DocumentClass, emb embedder.Embedder) (Strategy, Params) {
	switch class {
	case model.ClassExpenseDocument:
		return &ExpenseSectionStrategy{Fallback: &FixedSizeStrategy{Params: Params{Target: 800, Overlap: 100}}}, Params{}
	case model.ClassFinancialStatement:
		p := Params{SimilarityThreshold: 0.6, MinChunkSize: 80, MaxChunkSize: 1000}
		return &SemanticStrategy{Embedder: emb, Params: p}, p
	case model.ClassContract:
		p := Params{ParentTarget: 1500, ChildTarget: 400}
		return &HierarchicalStrategy{Params: p}, p
	case model.ClassReport:
		p := Params{SimilarityThreshold: 0.6, MinChunkSize: 80, MaxChunkSize: 1200}
		return &SemanticStrategy{Embedder: emb, Params: p}, p
	default:
		p := Params{Target: 800, Overlap: 100, PreserveSentences: true}
		return &FixedSizeStrategy{Params: p}, p
	}
}

// FragmentID builds the `{document_id}_chunk_{index}_{content_hash8}`
// identifier. The hash prefix exists for debuggability, not uniqueness.
func FragmentID(documentID string, index int, content string) string {
	sum := md5.Sum([]byte(content))
	return fmt.Sprintf("%s_chunk_%d_%s", documentID, index, hex.EncodeToString(sum[:])[:8])
}
