package ollama

import (
	"strings"

	"github.com/akarpov/specqa/internal/core/domain"
)

func buildTransformPrompt(question string, history []domain.ChatLog) string {
	var b strings.Builder
	b.WriteString(`You rewrite a user question about technical specification documents into search queries.
Return strict JSON object with keys:
translation (string, the question translated to the document language),
rewriting (string, a standalone reformulation resolving pronouns from the chat history),
expansion (array of up to 3 alternative phrasings),
hyde (string, a short hypothetical passage that would answer the question).
No markdown, no extra keys.
`)
	if len(history) > 0 {
		b.WriteString("\nChat history:\n")
		b.WriteString(domain.FormatHistory(history))
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion:\n")
	b.WriteString(question)
	return b.String()
}

func buildAnswerPrompt(question string, contextText domain.AssembledContext, history []domain.ChatLog) string {
	var b strings.Builder
	b.WriteString(`Answer the user question only from the context below.
Base documents state the general rules; additional documents amend them and take precedence where they conflict.
Cite the document name for every claim. If the context is insufficient, say it directly.
`)
	if len(history) > 0 {
		b.WriteString("\nChat history:\n")
		b.WriteString(domain.FormatHistory(history))
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n\nContext:\n")
	b.WriteString(contextText.Combined)
	return b.String()
}

func buildVerificationPrompt(contextText domain.AssembledContext, answer string) string {
	return `You verify whether an answer is supported by its source context.
For every claim in the answer, check if the context supports it.
Reply with SUPPORTED, PARTIALLY SUPPORTED or UNSUPPORTED on the first line,
then list any unsupported claims.

Context:
` + contextText.Combined + `

Answer:
` + answer
}
