// Package chunker splits extracted document text into overlapping
// fixed-size passages.
package chunker

import (
	"strings"

	"github.com/bizassist/bizassist/internal/rag"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50

	// PageSeparator is inserted between pages before chunking.
	PageSeparator = "\n"
)

// Chunk splits text into passages of at most chunkSize characters, each
// starting overlap characters before the end of the previous one. Lengths
// are counted in runes. Empty text yields no passages.
func Chunk(text string, chunkSize, overlap int) ([]rag.Passage, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	spans := spans([]rune(text), chunkSize, overlap)
	out := make([]rag.Passage, len(spans))
	for i, s := range spans {
		out[i] = rag.Passage{Text: s.text, Ordinal: i}
	}
	return out, nil
}

func validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return rag.Invalid("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return rag.Invalid("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return nil
}

type span struct {
	start int
	text  string
}

func spans(runes []rune, size, overlap int) []span {
	n := len(runes)
	if n == 0 {
		return nil
	}
	step := size - overlap
	var out []span
	for start := 0; ; start += step {
		end := min(start+size, n)
		out = append(out, span{start: start, text: string(runes[start:end])})
		if end == n {
			break
		}
	}
	return out
}

// Splitter chunks multi-page documents.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum passage length in characters.
func WithChunkSize(n int) Option {
	return func(s *Splitter) { s.chunkSize = n }
}

// WithOverlap sets how many trailing characters repeat at the start of the
// next passage.
func WithOverlap(n int) Option {
	return func(s *Splitter) { s.overlap = n }
}

// New returns a Splitter with the 500/50 defaults unless overridden.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{chunkSize: DefaultChunkSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(s)
	}
	if err := validate(s.chunkSize, s.overlap); err != nil {
		return nil, err
	}
	return s, nil
}

// ChunkSize returns the configured passage length.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split joins pages with PageSeparator and chunks the result, so passages
// may straddle a page boundary. Each passage records the page its first
// character came from.
func (s *Splitter) Split(pages []string) []rag.Passage {
	joined := strings.Join(pages, PageSeparator)
	runes := []rune(joined)

	// pageStarts[i] is the rune offset where page i begins.
	pageStarts := make([]int, len(pages))
	offset := 0
	sepLen := len([]rune(PageSeparator))
	for i, p := range pages {
		pageStarts[i] = offset
		offset += len([]rune(p)) + sepLen
	}

	spans := spans(runes, s.chunkSize, s.overlap)
	out := make([]rag.Passage, len(spans))
	page := 0
	for i, sp := range spans {
		for page+1 < len(pageStarts) && pageStarts[page+1] <= sp.start {
			page++
		}
		out[i] = rag.Passage{Text: sp.text, Ordinal: i, Page: page}
	}
	return out
}
