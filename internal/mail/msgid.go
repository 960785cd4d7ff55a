package mail

import "strings"

// NormalizeID canonicalizes a Message-ID: angle brackets and all
// whitespace are stripped and the result is lowercased. Two ids that
// differ only by brackets, case, or whitespace normalize identically.
func NormalizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch r {
		case '<', '>', ' ', '\t', '\r', '\n':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// IDCandidates returns the forms under which a Message-ID may have been
// persisted: the trimmed raw value, the normalized value, and the
// normalized value re-wrapped in angle brackets. Duplicates are removed
// and an empty input yields an empty slice.
func IDCandidates(id string) []string {
	normalized := NormalizeID(id)
	if normalized == "" {
		return nil
	}

	raw := strings.TrimSpace(id)
	withAngles := "<" + normalized + ">"

	candidates := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	for _, candidate := range []string{raw, normalized, withAngles} {
		if candidate == "" || seen[candidate] {
			continue
		}
		seen[candidate] = true
		candidates = append(candidates, candidate)
	}

	return candidates
}
