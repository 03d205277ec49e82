package contextbuild

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/akarpov/specqa/internal/core/domain"
)

// Budgets caps the token length of each serialized context block. Zero
// means unlimited.
type Budgets struct {
	Base       int
	Additional int
}

// Assembler serializes combined documents into the generator-facing context
// blocks and truncates each block to its token budget.
type Assembler struct {
	truncator *Truncator
	budgets   Budgets
	logger    *slog.Logger
}

func NewAssembler(truncator *Truncator, budgets Budgets, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{truncator: truncator, budgets: budgets, logger: logger}
}

// Format renders the combined documents into an AssembledContext. With
// hierarchy disabled every document goes into one combined block. With
// hierarchy enabled base and additional documents render as separate
// blocks; additional documents are re-sorted ascending by max score so the
// most relevant amendment sits adjacent to the end of the prompt, next to
// the question ("lost in the middle" mitigation).
func (a *Assembler) Format(docs []domain.CombinedChunks, hierarchy bool) domain.AssembledContext {
	if !hierarchy {
		combined := a.truncate(renderDocs(docs), a.budgets.Base, "combined")
		return domain.AssembledContext{Combined: combined}
	}

	var base, additional []domain.CombinedChunks
	for _, doc := range docs {
		if docType(doc) == domain.DocTypeAdditional {
			additional = append(additional, doc)
		} else {
			base = append(base, doc)
		}
	}

	sort.SliceStable(additional, func(i, j int) bool {
		return additional[i].MaxScore < additional[j].MaxScore
	})

	baseBlock := a.truncate(renderDocs(base), a.budgets.Base, "base")
	additionalBlock := a.truncate(renderDocs(additional), a.budgets.Additional, "additional")

	combined := "<base-context>\n" + baseBlock + "</base-context>\n" +
		"<additional-context>\n" + additionalBlock + "</additional-context>"

	return domain.AssembledContext{
		Combined:   combined,
		Base:       baseBlock,
		Additional: additionalBlock,
	}
}

func (a *Assembler) truncate(block string, budget int, name string) string {
	if a.truncator == nil || budget <= 0 {
		return block
	}
	truncated, before, after := a.truncator.Truncate(block, budget)
	if after < before {
		a.logger.Info("context block truncated",
			"block", name,
			"tokens_before", before,
			"tokens_after", after,
		)
	}
	return truncated
}

func renderDocs(docs []domain.CombinedChunks) string {
	var b strings.Builder
	for _, doc := range docs {
		name := docName(doc)
		fmt.Fprintf(&b, "--- Document: %s ---\n", name)
		if baseDocID := metaString(doc.DocMeta, "base_doc_id"); baseDocID != "" {
			fmt.Fprintf(&b, "Based on: %s\n", baseDocID)
		}
		fmt.Fprintf(&b, "Average Score: %.4f\n", doc.MeanScore)
		if version := metaString(doc.DocMeta, "version"); version != "" {
			fmt.Fprintf(&b, "Version: %s\n", version)
		}
		b.WriteString("\n")
		for _, chunk := range doc.Chunks {
			renderChunk(&b, chunk)
		}
	}
	return b.String()
}

func renderChunk(b *strings.Builder, chunk domain.Chunk) {
	fmt.Fprintf(b, "CHUNK (%s)\n", chunk.ChunkID)
	fmt.Fprintf(b, "Score: %.4f\n", chunk.Score)
	if page, ok := chunk.ChunkMeta["page"]; ok {
		fmt.Fprintf(b, "Page: %v\n", page)
	}
	fmt.Fprintf(b, "TEXT:\n%s\n\n", chunk.Text)
}

func docType(doc domain.CombinedChunks) string {
	if t := metaString(doc.DocMeta, "doc_type"); t != "" {
		return t
	}
	if len(doc.Chunks) > 0 {
		return doc.Chunks[0].DocType()
	}
	return ""
}

func docName(doc domain.CombinedChunks) string {
	if name := metaString(doc.DocMeta, "doc_name"); name != "" {
		return name
	}
	if len(doc.Chunks) > 0 {
		return doc.Chunks[0].DocName()
	}
	return doc.DocID
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}
