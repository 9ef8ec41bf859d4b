package embeddings

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxFeatures caps the TF-IDF vocabulary size.
const DefaultMaxFeatures = 384

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TFIDF fits a term-frequency / inverse-document-frequency vectorizer on a
// corpus. Fitting is deterministic: the same corpus always yields the same
// vocabulary and weights.
type TFIDF struct {
	maxFeatures int
	stopwords   map[string]struct{}
}

// NewTFIDF returns a TF-IDF fitter keeping at most maxFeatures terms.
// Non-positive values fall back to DefaultMaxFeatures.
func NewTFIDF(maxFeatures int) *TFIDF {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &TFIDF{maxFeatures: maxFeatures, stopwords: defaultStopwords()}
}

func (t *TFIDF) Name() string { return fmt.Sprintf("tfidf/%d", t.maxFeatures) }

// Fit learns the vocabulary and IDF weights. The most frequent terms across
// the corpus are kept, ties broken alphabetically. A corpus with no usable
// tokens yields a one-dimensional embedder that maps everything to zero.
func (t *TFIDF) Fit(_ context.Context, corpus []string) (Embedder, error) {
	df := make(map[string]int)
	freq := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range t.tokenize(text) {
			freq[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > t.maxFeatures {
		terms = terms[:t.maxFeatures]
	}
	sort.Strings(terms)

	e := &TFIDFEmbedder{
		fitter:     t,
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return e, nil
}

func (t *TFIDF) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := t.stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// TFIDFEmbedder is a fitted TF-IDF vectorizer. It is safe for concurrent use.
type TFIDFEmbedder struct {
	fitter     *TFIDF
	vocabulary map[string]int
	idf        []float64
}

func (e *TFIDFEmbedder) Name() string { return e.fitter.Name() }

// Dimensions is the vocabulary size, or 1 for an empty vocabulary.
func (e *TFIDFEmbedder) Dimensions() int { return max(len(e.idf), 1) }

// Vocabulary returns the fitted terms in index order.
func (e *TFIDFEmbedder) Vocabulary() []string {
	out := make([]string, len(e.vocabulary))
	for term, i := range e.vocabulary {
		out[i] = term
	}
	return out
}

// Embed returns L2-normalised TF-IDF vectors. Texts sharing no term with
// the vocabulary map to the zero vector.
func (e *TFIDFEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.Dimensions())
		for _, tok := range e.fitter.tokenize(text) {
			if idx, ok := e.vocabulary[tok]; ok {
				vec[idx] += float32(e.idf[idx])
			}
		}
		out[i] = Normalize(vec)
	}
	return out, nil
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same",
		"too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
