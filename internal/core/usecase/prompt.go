package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

const fallbackMaxContextChars = 8000

const defaultSystemPrompt = "You are a careful assistant. Answer using only the provided context. " +
	"Cite the context passages you used with their [n] markers. " +
	"If the context does not contain the answer, say so."

// buildPrompt assembles the user prompt from the query and the reranked
// context. Passages are numbered [1]..[n] in rank order; when the context
// exceeds the character budget the lowest-ranked passages are dropped. The
// top passage is always kept, truncated to the budget if it alone overflows.
// Returns the prompt and the passages that made it in.
func buildPrompt(query string, candidates []domain.RerankedCandidate, maxContextChars int) (string, []domain.RerankedCandidate) {
	if maxContextChars <= 0 {
		maxContextChars = fallbackMaxContextChars
	}

	var context strings.Builder
	used := make([]domain.RerankedCandidate, 0, len(candidates))
	remaining := maxContextChars
	for _, c := range candidates {
		text := c.Text
		size := utf8.RuneCountInString(text)
		if size > remaining {
			if len(used) > 0 {
				break
			}
			text = truncateRunes(text, remaining)
			size = utf8.RuneCountInString(text)
		}
		fmt.Fprintf(&context, "[%d] %s\n\n", len(used)+1, text)
		remaining -= size
		used = append(used, c)
	}

	var prompt strings.Builder
	prompt.WriteString("Context:\n")
	if len(used) == 0 {
		prompt.WriteString("(no relevant context found)\n")
	} else {
		prompt.WriteString(context.String())
	}
	prompt.WriteString("Question: ")
	prompt.WriteString(query)
	prompt.WriteString("\n\nAnswer:")
	return prompt.String(), used
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// citationsFor lists source document ids in rank order, first occurrence only.
func citationsFor(used []domain.RerankedCandidate) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(used))
	for _, c := range used {
		if _, ok := seen[c.DocumentID]; ok {
			continue
		}
		seen[c.DocumentID] = struct{}{}
		out = append(out, c.DocumentID)
	}
	return out
}
