package app

import (
	"strings"

	"kbqa/internal/model"
)

// FallbackAnswer replaces a blank completion.
const FallbackAnswer = "Sorry, I could not produce an answer from the reference material."

// NotMentioned is the reply the model is told to give when the material has
// nothing relevant.
const NotMentioned = "The reference material does not mention this."

// BuildContext joins retrieved chunk texts in rank order.
func BuildContext(results []model.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Chunk.Content
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt renders the single grounding instruction sent ahead of the
// conversation history.
func BuildPrompt(context, query string) string {
	var b strings.Builder
	b.WriteString("You are a professional domain knowledge assistant. Answer the user's question strictly from the reference material below.\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. Use only information found in the reference material. Do not speculate.\n")
	b.WriteString("2. If the material contains nothing relevant, reply exactly: \"" + NotMentioned + "\"\n")
	b.WriteString("3. Keep the answer concise and direct.\n\n")
	b.WriteString("Reference material:\n")
	b.WriteString(context)
	b.WriteString("\n\nUser question:\n")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:\n")
	return b.String()
}
