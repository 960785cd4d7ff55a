package mail

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// subjectPrefixes are the reply/forward tokens stripped from the front
// of a subject, repeatedly, before hashing.
var subjectPrefixes = []string{"re:", "fw:", "fwd:"}

// NormalizeSubject lowercases a subject, strips any leading
// re:/fw:/fwd: tokens (repeatedly, so "Re: Fwd: X" reduces to "x"),
// and collapses runs of whitespace to single spaces.
func NormalizeSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))

	for {
		stripped := false
		for _, prefix := range subjectPrefixes {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}

	return strings.Join(strings.Fields(s), " ")
}

// DeriveThreadKey produces the stable grouping key for a message.
// Priority: the first (root) reference anchors every reply in a chain
// to one key even when intermediate messages were never fetched; then
// the in-reply-to id; finally a digest of the normalized subject plus
// sender so header-less messages from one sender still collapse.
func DeriveThreadKey(msg Message) string {
	if len(msg.References) > 0 {
		if root := NormalizeID(msg.References[0]); root != "" {
			return "ref:" + root
		}
	}

	if msg.InReplyTo != "" {
		return "reply:" + NormalizeID(msg.InReplyTo)
	}

	basis := NormalizeSubject(msg.Subject) + ":" + msg.From.Address
	digest := sha1.Sum([]byte(basis))
	return "subj:" + hex.EncodeToString(digest[:])
}

// HasContent reports whether text contains anything beyond whitespace.
func HasContent(text string) bool {
	return strings.TrimSpace(text) != ""
}

// Snippet compacts text to a single line of at most maxChars runes,
// appending an ellipsis when truncated.
func Snippet(text string, maxChars int) string {
	compact := strings.Join(strings.Fields(text), " ")
	if maxChars <= 3 || len([]rune(compact)) <= maxChars {
		return compact
	}

	runes := []rune(compact)
	return string(runes[:maxChars-3]) + "..."
}
