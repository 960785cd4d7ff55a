package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeStringArray(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, decodeStringArray(`["a","b"]`))
	assert.Equal(t, []string{}, decodeStringArray(""))
	assert.Equal(t, []string{}, decodeStringArray("null"))

	// A corrupt row decodes to empty instead of failing the read.
	assert.Equal(t, []string{}, decodeStringArray(`{"not":"an array"`))
	assert.Equal(t, []string{}, decodeStringArray(`garbage`))
}

func TestPadCandidates(t *testing.T) {
	a, b, c := padCandidates([]string{"x"})
	assert.Equal(t, []string{"x", "x", "x"}, []string{a, b, c})

	a, b, c = padCandidates([]string{"x", "y"})
	assert.Equal(t, []string{"x", "y", "x"}, []string{a, b, c})

	a, b, c = padCandidates([]string{"x", "y", "z"})
	assert.Equal(t, []string{"x", "y", "z"}, []string{a, b, c})
}

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}
