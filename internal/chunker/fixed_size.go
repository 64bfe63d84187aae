package chunker

import (
	"regexp"
	"strings"

	"expenseindex/internal/model"
)

var sentenceBoundaryRe = regexp.MustCompile(`[.!?]\s`)

// FixedSizeStrategy cuts text into sliding windows of Target characters,
// advancing by Target-Overlap, optionally snapping the window boundary to
// the nearest sentence terminator within +/-100 characters.
type FixedSizeStrategy struct {
	Params
	ChunkTypeOverride model.ChunkType
}

func (s *FixedSizeStrategy) Chunk(text string) ([]Chunk, error) {
	target := s.Target
	if target <= 0 {
		target = 800
	}
	overlap := s.Overlap
	if overlap < 0 || overlap >= target {
		overlap = 0
	}
	stride := target - overlap
	if stride <= 0 {
		stride = target
	}
	chunkType := s.ChunkTypeOverride
	if chunkType == "" {
		chunkType = model.ChunkFixedSize
	}

	var out []Chunk
	n := len(text)
	start := 0
	for start < n {
		end := start + target
		if end > n {
			end = n
		} else if s.PreserveSentences {
			end = snapToSentence(text, end, target, start)
		}

		chunkText := strings.TrimSpace(text[start:end])
		if chunkText != "" {
			out = append(out, Chunk{
				Text:             chunkText,
				ChunkType:        chunkType,
				StartChar:        start,
				EndChar:          end,
				ParentChunkIndex: -1,
			})
		}

		if end >= n {
			break
		}
		start += stride
		if start <= 0 {
			start = end
		}
	}
	return out, nil
}

// snapToSentence extends or retracts end to the nearest sentence terminator
// within +/-100 characters of the target end, ties resolving toward the
// position closest to target (i.e. closest to the original end).
func snapToSentence(text string, end, target, start int) int {
	n := len(text)
	lo := end - 100
	if lo < start {
		lo = start
	}
	hi := end + 100
	if hi > n {
		hi = n
	}
	window := text[lo:hi]

	locs := sentenceBoundaryRe.FindAllStringIndex(window, -1)
	if len(locs) == 0 {
		if end > n {
			return n
		}
		return end
	}

	best := -1
	bestDist := 1 << 30
	for _, loc := range locs {
		// boundary position is right after the matched punctuation+space
		pos := lo + loc[1]
		dist := pos - end
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestDist = dist
			best = pos
		}
	}
	if best < start+1 {
		return end
	}
	if best > n {
		return n
	}
	return best
}
