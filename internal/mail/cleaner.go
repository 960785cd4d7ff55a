package mail

import (
	"regexp"
	"strings"
)

// quoteMarkers match the first line of a quoted-reply block. Everything
// from the matching line onward is dropped.
var quoteMarkers = []*regexp.Regexp{
	regexp.MustCompile(`^\s*>`),
	regexp.MustCompile(`(?i)^\s*-{2,}\s*original message\s*-{2,}\s*$`),
	regexp.MustCompile(`(?i)^\s*on\s+.+wrote:\s*$`),
	regexp.MustCompile(`(?i)^\s*from:\s+`),
	regexp.MustCompile(`(?i)^\s*sent:\s+`),
	regexp.MustCompile(`(?i)^\s*to:\s+`),
	regexp.MustCompile(`(?i)^\s*subject:\s+`),
}

// signatureMarkers match the first line of a trailing signature. Only
// the last ten lines are scanned, bottom-up.
var signatureMarkers = []*regexp.Regexp{
	regexp.MustCompile(`^\s*--\s*$`),
	regexp.MustCompile(`(?i)^\s*sent from my `),
	regexp.MustCompile(`(?i)^\s*best,?\s*$`),
	regexp.MustCompile(`(?i)^\s*regards,?\s*$`),
	regexp.MustCompile(`(?i)^\s*thanks,?\s*$`),
	regexp.MustCompile(`(?i)^\s*cheers,?\s*$`),
}

func normalizeNewlines(input string) string {
	s := strings.ReplaceAll(input, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func stripQuoted(lines []string) []string {
	for i, line := range lines {
		for _, marker := range quoteMarkers {
			if marker.MatchString(line) {
				return lines[:i]
			}
		}
	}
	return lines
}

func stripSignature(lines []string) []string {
	windowStart := len(lines) - 10
	if windowStart < 0 {
		windowStart = 0
	}

	for i := len(lines) - 1; i >= windowStart; i-- {
		for _, marker := range signatureMarkers {
			if marker.MatchString(lines[i]) {
				return lines[:i]
			}
		}
	}

	return lines
}

func squashBlankLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	blankRun := 0

	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
			out = append(out, "")
			continue
		}

		blankRun = 0
		out = append(out, trimmed)
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return out
}

// CleanBody strips quoted-reply blocks and trailing signatures from a
// raw message body, leaving the text a drafting step should read. If
// the heuristics over-strip everything, the first 12 lines of the
// normalized original are kept instead, so cleaning never returns
// empty when the input had usable content near the top.
func CleanBody(input string) string {
	normalized := strings.TrimSpace(normalizeNewlines(input))
	if normalized == "" {
		return ""
	}

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.ReplaceAll(line, "\t", "  ")
	}

	cleaned := squashBlankLines(stripSignature(stripQuoted(lines)))
	if compact := strings.TrimSpace(strings.Join(cleaned, "\n")); compact != "" {
		return compact
	}

	fallback := strings.Split(normalizeNewlines(input), "\n")
	if len(fallback) > 12 {
		fallback = fallback[:12]
	}
	return strings.TrimSpace(strings.Join(fallback, "\n"))
}
