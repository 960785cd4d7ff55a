package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "abc@example.com", "abc@example.com"},
		{"angle brackets", "<abc@example.com>", "abc@example.com"},
		{"uppercase", "<ABC@Example.COM>", "abc@example.com"},
		{"surrounding whitespace", "  <abc@example.com>  ", "abc@example.com"},
		{"empty", "", ""},
		{"only brackets", "<>", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeID(tc.input))
		})
	}
}

func TestNormalizeIDEquivalence(t *testing.T) {
	variants := []string{
		"id-123@host",
		"<id-123@host>",
		" ID-123@HOST ",
		"<ID-123@host>",
	}

	canonical := NormalizeID(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, canonical, NormalizeID(v), "variant %q", v)
	}
}

func TestIDCandidates(t *testing.T) {
	candidates := IDCandidates("<Msg-1@Example.com>")

	assert.Contains(t, candidates, "<Msg-1@Example.com>")
	assert.Contains(t, candidates, "msg-1@example.com")
	assert.Contains(t, candidates, "<msg-1@example.com>")
}

func TestIDCandidatesDeduplicates(t *testing.T) {
	// Already-canonical input collapses raw and normalized forms.
	candidates := IDCandidates("msg-1@example.com")

	assert.Len(t, candidates, 2)
	assert.Equal(t, []string{"msg-1@example.com", "<msg-1@example.com>"}, candidates)
}

func TestIDCandidatesEmpty(t *testing.T) {
	assert.Empty(t, IDCandidates(""))
	assert.Empty(t, IDCandidates("   "))
	assert.Empty(t, IDCandidates("<>"))
}
