package store

import (
	"context"

	"github.com/sndlabs/snd/internal/model"
)

// Store defines the persistence contract for accounts, sync state,
// threads, messages, drafts, rules, and memory notes. The store is the
// exclusive owner of all persisted entities; callers receive copies and
// request mutations through the upsert/query methods below. Writes are
// idempotent where the data model requires it: account, thread, draft,
// sync-state, and memory-note writes are upserts, and message inserts
// are insert-or-ignore on (account, message id).
type Store interface {
	// === Accounts & sync state ===

	UpsertAccount(ctx context.Context, account model.Account) error
	GetSyncState(ctx context.Context, accountID string) (model.SyncState, error)
	UpsertSyncState(ctx context.Context, state model.SyncState) error

	// === Threads ===

	FindThreadByKey(ctx context.Context, accountID, threadKey string) (*model.Thread, error)
	UpsertThread(ctx context.Context, thread model.Thread) (*model.Thread, error)
	GetThread(ctx context.Context, threadID string) (*model.Thread, error)
	ListNeedsReply(ctx context.Context, limit int) ([]model.Thread, error)
	SetThreadNeedsReply(ctx context.Context, threadID string, needsReply bool) error
	SetThreadSummary(ctx context.Context, threadID, summary string) error

	// === Messages ===

	// HasMessage matches any persisted form of the message id
	// (raw, normalized, re-bracketed), so legacy rows dedup too.
	HasMessage(ctx context.Context, accountID, messageID string) (bool, error)

	// FindThreadByReference locates the thread of an already-persisted
	// message whose id matches the given reference, newest match first.
	FindThreadByReference(ctx context.Context, accountID, reference string) (*model.Thread, error)

	InsertMessage(ctx context.Context, msg model.Message) error
	MessagesForThread(ctx context.Context, threadID string) ([]model.Message, error)

	// === Drafts ===

	GetDraft(ctx context.Context, threadID string) (*model.Draft, error)
	UpsertDraft(ctx context.Context, draft model.Draft) (*model.Draft, error)

	// === Rules ===

	ListRules(ctx context.Context) ([]model.Rule, error)
	UpsertRule(ctx context.Context, rule model.Rule) (*model.Rule, error)
	DeleteRule(ctx context.Context, id string) error

	// === Memory notes ===

	UpsertMemoryNote(ctx context.Context, note model.MemoryNote) (*model.MemoryNote, error)
	GetMemoryNote(ctx context.Context, scope model.NoteScope, key string) (*model.MemoryNote, error)
	ListMemory(ctx context.Context, scope model.NoteScope) ([]model.MemoryNote, error)
}
