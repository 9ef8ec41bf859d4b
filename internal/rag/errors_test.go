package rag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdapterErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("429 too many requests")
	err := fmt.Errorf("submit: %w", &AdapterError{Provider: "groq", Err: cause})

	assert.ErrorIs(t, err, ErrAdapterFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotIndexed)

	var ae *AdapterError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, "groq", ae.Provider)
	assert.Contains(t, err.Error(), "groq")
}

func TestInvalid(t *testing.T) {
	err := Invalid("overlap %d must be below chunk size %d", 10, 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "overlap 10")
}

func TestTexts(t *testing.T) {
	ps := []Passage{{Text: "a", Ordinal: 0}, {Text: "b", Ordinal: 1}}
	assert.Equal(t, []string{"a", "b"}, Texts(ps))
	assert.Empty(t, Texts(nil))
}
