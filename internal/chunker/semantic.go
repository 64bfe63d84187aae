package chunker

import (
	"context"
	"regexp"
	"strings"

	"expenseindex/internal/embedder"
	"expenseindex/internal/model"
)

var sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)

// SemanticStrategy groups sentences by embedding similarity to the running
// mean of the current group, starting a new group when similarity drops
// below SimilarityThreshold and the group already meets MinChunkSize, or
// when the candidate sentence would push the group past MaxChunkSize. If
// Embedder is nil, it falls back to paragraph-based fixed-size chunking.
type SemanticStrategy struct {
	Embedder embedder.Embedder
	Params
}

func (s *SemanticStrategy) Chunk(text string) ([]Chunk, error) {
	if s.Embedder == nil {
		return s.paragraphFallback(text)
	}

	sentences, offsets := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	vectors, err := s.Embedder.EmbedBatch(context.Background(), sentences)
	if err != nil || len(vectors) != len(sentences) {
		return s.paragraphFallback(text)
	}

	maxChunk := s.MaxChunkSize
	if maxChunk <= 0 {
		maxChunk = 1000
	}
	minChunk := s.MinChunkSize
	if minChunk <= 0 {
		minChunk = 80
	}
	threshold := s.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.6
	}

	var out []Chunk
	groupStart := 0
	groupEnd := 0
	groupVectors := [][]float32{}
	groupText := strings.Builder{}

	flush := func(endOffset int) {
		txt := strings.TrimSpace(groupText.String())
		if txt != "" {
			out = append(out, Chunk{
				Text:             txt,
				ChunkType:        model.ChunkSemantic,
				StartChar:        groupStart,
				EndChar:          endOffset,
				ParentChunkIndex: -1,
			})
		}
		groupText.Reset()
		groupVectors = groupVectors[:0]
	}

	for i, sent := range sentences {
		candidateLen := groupText.Len() + len(sent)
		if len(groupVectors) > 0 {
			mean := embedder.Mean(groupVectors)
			sim := embedder.CosineSimilarity(vectors[i], mean)
			tooBig := candidateLen > maxChunk
			groupLen := groupText.Len()
			if (sim < threshold && groupLen >= minChunk) || tooBig {
				flush(groupEnd)
				groupStart = offsets[i][0]
			}
		} else {
			groupStart = offsets[i][0]
		}

		if groupText.Len() > 0 {
			groupText.WriteString(" ")
		}
		groupText.WriteString(sent)
		groupVectors = append(groupVectors, vectors[i])
		groupEnd = offsets[i][1]
	}
	flush(groupEnd)

	return out, nil
}

func (s *SemanticStrategy) paragraphFallback(text string) ([]Chunk, error) {
	target := s.MaxChunkSize
	if target <= 0 {
		target = 1000
	}
	fb := &FixedSizeStrategy{
		Params:            Params{Target: target, Overlap: 0, PreserveSentences: true},
		ChunkTypeOverride: model.ChunkParagraphFallback,
	}
	return fb.Chunk(text)
}

// splitSentences returns sentences and their [start,end) byte offsets into
// text.
func splitSentences(text string) ([]string, [][2]int) {
	locs := sentenceSplitRe.FindAllStringIndex(text, -1)
	var sentences []string
	var offsets [][2]int
	start := 0
	for _, loc := range locs {
		end := loc[1]
		sent := strings.TrimSpace(text[start:end])
		if sent != "" {
			sentences = append(sentences, sent)
			offsets = append(offsets, [2]int{start, end})
		}
		start = end
	}
	if start < len(text) {
		sent := strings.TrimSpace(text[start:])
		if sent != "" {
			sentences = append(sentences, sent)
			offsets = append(offsets, [2]int{start, len(text)})
		}
	}
	return sentences, offsets
}
