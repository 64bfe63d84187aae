package chunker

import "expenseindex/internal/model"

// HierarchicalStrategy produces coarse parent chunks from a large-target
// fixed-size pass, then fine children within each parent from a
// small-target fixed-size pass. Both levels are returned; children carry
// ParentChunkIndex pointing at their parent's position in the output.
type HierarchicalStrategy struct {
	Params
}

func (s *HierarchicalStrategy) Chunk(text string) ([]Chunk, error) {
	parentTarget := s.ParentTarget
	if parentTarget <= 0 {
		parentTarget = 1500
	}
	childTarget := s.ChildTarget
	if childTarget <= 0 {
		childTarget = 400
	}

	parentStrategy := &FixedSizeStrategy{
		Params:            Params{Target: parentTarget, Overlap: 0, PreserveSentences: true},
		ChunkTypeOverride: model.ChunkHierarchicalParent,
	}
	parents, err := parentStrategy.Chunk(text)
	if err != nil {
		return nil, err
	}

	var out []Chunk
	for _, parent := range parents {
		parentIdx := len(out)
		out = append(out, parent)

		childStrategy := &FixedSizeStrategy{
			Params:            Params{Target: childTarget, Overlap: 0, PreserveSentences: true},
			ChunkTypeOverride: model.ChunkHierarchicalChild,
		}
		children, err := childStrategy.Chunk(parent.Text)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			child.StartChar += parent.StartChar
			child.EndChar += parent.StartChar
			child.ParentChunkIndex = parentIdx
			out = append(out, child)
		}
	}
	return out, nil
}
