package vectordb

import (
	"fmt"
	"strings"

	"github.com/bizassist/bizassist/internal/rag"
)

// Result pairs a retrieved passage with its similarity score.
type Result struct {
	Passage rag.Passage `json:"passage"`
	Score   float32     `json:"score"`
}

// FormatResults renders search results as human-readable text.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (score: %.4f) ---\n", i+1, r.Score))
		sb.WriteString(fmt.Sprintf("Passage: %d, page %d\n\n", r.Passage.Ordinal, r.Passage.Page+1))
		sb.WriteString(r.Passage.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
