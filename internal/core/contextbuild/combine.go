package contextbuild

import (
	"context"
	"log/slog"
	"sort"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
)

// Combine groups chunks by owning document, computes per-document mean and
// max scores, and orders everything for presentation: documents by max
// chunk score descending (mean descending breaks ties) so the single most
// relevant fact stays near the front regardless of how many low-relevance
// chunks a document also contributed; chunks within a document by score
// descending.
func Combine(chunks []domain.Chunk) []domain.CombinedChunks {
	byDoc := make(map[string]*domain.CombinedChunks)
	order := make([]string, 0)

	for _, chunk := range chunks {
		doc, ok := byDoc[chunk.DocID]
		if !ok {
			doc = &domain.CombinedChunks{DocID: chunk.DocID, DocMeta: chunk.DocMeta}
			byDoc[chunk.DocID] = doc
			order = append(order, chunk.DocID)
		}
		doc.Chunks = append(doc.Chunks, chunk)
	}

	out := make([]domain.CombinedChunks, 0, len(byDoc))
	for _, docID := range order {
		doc := byDoc[docID]
		var sum float64
		max := doc.Chunks[0].Score
		for _, chunk := range doc.Chunks {
			sum += chunk.Score
			if chunk.Score > max {
				max = chunk.Score
			}
		}
		doc.MeanScore = sum / float64(len(doc.Chunks))
		doc.MaxScore = max

		sort.SliceStable(doc.Chunks, func(i, j int) bool {
			return doc.Chunks[i].Score > doc.Chunks[j].Score
		})
		out = append(out, *doc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MaxScore != out[j].MaxScore {
			return out[i].MaxScore > out[j].MaxScore
		}
		return out[i].MeanScore > out[j].MeanScore
	})
	return out
}

// AttachLinks fills CombinedChunks.Link with a presigned URL per document.
// Signing failures are logged and leave the link empty; a missing link
// never blocks context assembly.
func AttachLinks(ctx context.Context, docs []domain.CombinedChunks, signer ports.LinkSigner, logger *slog.Logger) {
	if signer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	for i := range docs {
		link, err := signer.SignLink(ctx, docs[i].DocID)
		if err != nil {
			logger.Warn("presign source link failed", "doc_id", docs[i].DocID, "error", err)
			continue
		}
		docs[i].Link = link
	}
}
