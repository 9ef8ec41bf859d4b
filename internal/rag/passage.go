package rag

// Passage is a bounded span of document text produced by chunking.
// Passages are immutable once created.
type Passage struct {
	Text    string `json:"text"`
	Ordinal int    `json:"ordinal"`
	// Page is the zero-based page the passage's first character came from.
	Page int `json:"page"`
}

// Texts returns the text of each passage, in order.
func Texts(passages []Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Text
	}
	return out
}
