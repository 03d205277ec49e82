package domain

import "strings"

// QueryBundle holds the alternative formulations produced by the query
// transformer for one user question. An empty field means that
// transformation stage is disabled or failed.
type QueryBundle struct {
	Translation string   `json:"translation,omitempty"`
	Rewriting   string   `json:"rewriting,omitempty"`
	Expansion   []string `json:"expansion,omitempty"`
	HyDE        string   `json:"hyde,omitempty"`
}

// BundleFromQuestion wraps a raw question when transformation is disabled or
// failed, so retrieval always has at least one query to issue.
func BundleFromQuestion(question string) QueryBundle {
	return QueryBundle{Translation: strings.TrimSpace(question)}
}

// Queries flattens the bundle into an ordered, deduplicated list of query
// strings. Order is translation, rewriting, expansion, hyde; blanks are
// dropped; the first occurrence of a duplicate wins.
func (b QueryBundle) Queries() []string {
	candidates := make([]string, 0, 3+len(b.Expansion))
	candidates = append(candidates, b.Translation, b.Rewriting)
	candidates = append(candidates, b.Expansion...)
	candidates = append(candidates, b.HyDE)

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, q := range candidates {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

// IsEmpty reports whether the bundle flattens to zero queries.
func (b QueryBundle) IsEmpty() bool {
	return len(b.Queries()) == 0
}

// ChatLog is one prior conversation turn fed to the query transformer and
// the answer generator.
type ChatLog struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FormatHistory renders chat history the way prompts expect it.
func FormatHistory(history []ChatLog) string {
	lines := make([]string, 0, len(history))
	for _, item := range history {
		lines = append(lines, strings.ToUpper(item.Role)+": "+item.Content)
	}
	return strings.Join(lines, "\n")
}
