package retrieval

import (
	"sort"

	"github.com/akarpov/specqa/internal/core/domain"
)

// SortByScoreDesc orders chunks best-first. The sort is stable so ties keep
// the backend's original order and repeated calls with identical data are
// reproducible.
func SortByScoreDesc(chunks []domain.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
}

// TrimTopK truncates a ranked list to at most k chunks.
func TrimTopK(chunks []domain.Chunk, k int) []domain.Chunk {
	if k > 0 && len(chunks) > k {
		return chunks[:k]
	}
	return chunks
}
