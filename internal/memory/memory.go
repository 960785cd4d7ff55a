// Package memory manages the free-form notes that bias draft
// generation: user-scoped preferences and per-thread context. Notes are
// advisory, not authoritative; losing them only degrades draft quality.
package memory

import (
	"context"
	"strings"

	"github.com/sndlabs/snd/internal/model"
	"github.com/sndlabs/snd/internal/store"
)

// Service reads and writes memory notes through the store.
type Service struct {
	store store.Store
}

// New creates a memory service backed by s.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// UserNotes returns the values of all user-scoped notes.
func (s *Service) UserNotes(ctx context.Context) ([]string, error) {
	notes, err := s.store.ListMemory(ctx, model.NoteScopeUser)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(notes))
	for _, note := range notes {
		values = append(values, note.Value)
	}
	return values, nil
}

// ThreadNotes returns the values of all notes keyed under a thread.
// Thread-scoped keys are "<threadID>:<kind>".
func (s *Service) ThreadNotes(ctx context.Context, threadID string) ([]string, error) {
	notes, err := s.store.ListMemory(ctx, model.NoteScopeThread)
	if err != nil {
		return nil, err
	}

	prefix := threadID + ":"
	var values []string
	for _, note := range notes {
		if strings.HasPrefix(note.Key, prefix) {
			values = append(values, note.Value)
		}
	}
	return values, nil
}

// RememberThreadContext stores the rolling context summary for a thread.
func (s *Service) RememberThreadContext(ctx context.Context, threadID, summary string) error {
	_, err := s.store.UpsertMemoryNote(ctx, model.MemoryNote{
		Scope: model.NoteScopeThread,
		Key:   threadID + ":context",
		Value: summary,
	})
	return err
}

// RememberDraftPattern stores a snippet of the latest generated draft
// for a thread.
func (s *Service) RememberDraftPattern(ctx context.Context, threadID, summary string) error {
	_, err := s.store.UpsertMemoryNote(ctx, model.MemoryNote{
		Scope: model.NoteScopeThread,
		Key:   threadID + ":draft",
		Value: summary,
	})
	return err
}

// RememberUserPreference stores a user-scoped note under key.
func (s *Service) RememberUserPreference(ctx context.Context, key, value string) error {
	_, err := s.store.UpsertMemoryNote(ctx, model.MemoryNote{
		Scope: model.NoteScopeUser,
		Key:   key,
		Value: value,
	})
	return err
}

// LearnFromEdit records a human-edited draft as a tone sample for its
// thread and, when the edit exhibits recognizable style markers,
// refreshes the autolearned user style preference.
func (s *Service) LearnFromEdit(ctx context.Context, threadID, draft string) error {
	compact := strings.Join(strings.Fields(draft), " ")
	if len(compact) > 320 {
		compact = compact[:320]
	}
	if compact == "" {
		return nil
	}

	_, err := s.store.UpsertMemoryNote(ctx, model.MemoryNote{
		Scope: model.NoteScopeThread,
		Key:   threadID + ":edit",
		Value: "Edited draft tone sample: " + compact,
	})
	if err != nil {
		return err
	}

	hint := extractStyleHint(compact)
	if hint == "" {
		return nil
	}

	return s.RememberUserPreference(ctx, "style:autolearned", hint)
}

// extractStyleHint distills coarse style markers out of an edited
// draft. Returns "" when nothing recognizable is present.
func extractStyleHint(text string) string {
	lower := strings.ToLower(text)
	var markers []string

	if len(text) < 220 {
		markers = append(markers, "short-form")
	}
	if strings.Contains(lower, "thanks") {
		markers = append(markers, "polite-close")
	}
	if strings.Contains(text, "- ") || strings.Contains(text, "\n1.") {
		markers = append(markers, "structured-list")
	}
	if strings.Contains(lower, "let me know") {
		markers = append(markers, "explicit-follow-up")
	}

	if len(markers) == 0 {
		return ""
	}

	return "Autolearned style markers: " + strings.Join(markers, ", ")
}
