package sync

import (
	"sort"

	"github.com/sndlabs/snd/internal/mail"
)

// SelectLatestThreadKeys bounds a first-ever historical pull to its most
// recently active conversations. Messages are walked newest first and
// their derived thread keys collected until limit distinct keys have
// been seen; the bootstrap window is phrased in threads, not messages.
// A limit below 1 or an empty pull yields an empty set.
func SelectLatestThreadKeys(messages []mail.Message, limit int) map[string]struct{} {
	keys := make(map[string]struct{})
	if limit < 1 || len(messages) == 0 {
		return keys
	}

	sorted := make([]mail.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SentAt > sorted[j].SentAt
	})

	for _, msg := range sorted {
		key := mail.DeriveThreadKey(msg)
		if _, seen := keys[key]; seen {
			continue
		}
		if len(keys) >= limit {
			break
		}
		keys[key] = struct{}{}
	}

	return keys
}
