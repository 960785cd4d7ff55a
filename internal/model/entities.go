package model

// Account is the persisted identity for one mailbox.
type Account struct {
	ID        string
	Email     string
	Provider  string
	Host      string
	Port      int
	Secure    bool
	Username  string
	Auth      string
	CreatedAt int64
}

// SyncState tracks the incremental-fetch watermark for one account.
// LastUID is monotonically non-decreasing; sync resumes strictly above it.
type SyncState struct {
	AccountID  string
	LastUID    uint32
	LastSyncAt int64
}

// Thread is one conversation, unique per (account, thread key).
type Thread struct {
	ID            string
	AccountID     string
	ThreadKey     string
	Subject       string
	Participants  []string
	LastMessageAt int64
	LastSender    string
	NeedsReply    bool
	Summary       string
	UpdatedAt     int64
}

// Message is an ingested message, immutable once persisted and unique
// per (account, message id).
type Message struct {
	ID          string
	AccountID   string
	ThreadID    string
	UID         uint32
	MessageID   string
	InReplyTo   string
	References  []string
	Subject     string
	FromAddress string
	FromName    string
	ToAddresses []string
	CcAddresses []string
	BodyText    string
	SentAt      int64
	RawHeaders  string
}

// DraftStatus is the lifecycle state of a generated draft.
type DraftStatus string

const (
	DraftStatusDrafted DraftStatus = "drafted"
	DraftStatusEdited  DraftStatus = "edited"
	DraftStatusSkipped DraftStatus = "skipped"
)

// Draft is the at-most-one reply draft attached to a thread.
type Draft struct {
	ID        string
	ThreadID  string
	Content   string
	Status    DraftStatus
	UpdatedAt int64
	Model     string
}

// RuleKind identifies what a stored rule matches against.
type RuleKind string

const (
	RuleKindIgnoreSender RuleKind = "ignore_sender"
	RuleKindIgnoreDomain RuleKind = "ignore_domain"
	RuleKindStyle        RuleKind = "style"
)

// Rule is a stored filtering or style rule, evaluated per message.
// Patterns are fragments (a domain, a local-part) matched by substring
// containment, not exact equality.
type Rule struct {
	ID      string
	Kind    RuleKind
	Scope   string
	Pattern string
	Value   string
	Enabled bool
}

// NoteScope is the namespace of a memory note.
type NoteScope string

const (
	NoteScopeUser   NoteScope = "user"
	NoteScopeThread NoteScope = "thread"
)

// MemoryNote is a free-form key/value note used to bias future draft
// generation. Unique per (scope, key); safe to lose.
type MemoryNote struct {
	ID        string
	Scope     NoteScope
	Key       string
	Value     string
	UpdatedAt int64
}
