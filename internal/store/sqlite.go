package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sndlabs/snd/internal/mail"
	"github.com/sndlabs/snd/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
// SQLite's WAL journal gives single-writer/concurrent-reader semantics;
// the sync engine's one-cycle-at-a-time guard is the only writer
// discipline needed on top of it.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertAccount inserts or refreshes an account row. The creation
// timestamp is preserved across upserts.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, account model.Account) error {
	createdAt := account.CreatedAt
	if createdAt == 0 {
		createdAt = nowMillis()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, provider, host, port, secure, username, auth, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			provider = excluded.provider,
			host = excluded.host,
			port = excluded.port,
			secure = excluded.secure,
			username = excluded.username,
			auth = excluded.auth`,
		account.ID, account.Email, account.Provider, account.Host,
		account.Port, boolToInt(account.Secure), account.Username,
		account.Auth, createdAt,
	)
	if err != nil {
		return fmt.Errorf("upserting account %s: %w", account.ID, err)
	}

	return nil
}

// GetSyncState returns the watermark row for an account. An account
// that has never synced gets a zero-valued state, not an error.
func (s *SQLiteStore) GetSyncState(ctx context.Context, accountID string) (model.SyncState, error) {
	var row struct {
		AccountID  string `db:"account_id"`
		LastUID    int64  `db:"last_uid"`
		LastSyncAt int64  `db:"last_sync_at"`
	}

	err := s.db.GetContext(ctx, &row,
		"SELECT account_id, last_uid, last_sync_at FROM sync_state WHERE account_id = ?",
		accountID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SyncState{AccountID: accountID}, nil
	}
	if err != nil {
		return model.SyncState{}, fmt.Errorf("reading sync state for %s: %w", accountID, err)
	}

	return model.SyncState{
		AccountID:  row.AccountID,
		LastUID:    uint32(row.LastUID),
		LastSyncAt: row.LastSyncAt,
	}, nil
}

// UpsertSyncState writes the watermark for an account. This is the only
// write that commits "don't re-fetch this again".
func (s *SQLiteStore) UpsertSyncState(ctx context.Context, state model.SyncState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (account_id, last_uid, last_sync_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			last_uid = excluded.last_uid,
			last_sync_at = excluded.last_sync_at`,
		state.AccountID, int64(state.LastUID), state.LastSyncAt,
	)
	if err != nil {
		return fmt.Errorf("upserting sync state for %s: %w", state.AccountID, err)
	}

	return nil
}

const threadColumns = `id, account_id, thread_key, subject, participants,
	last_message_at, last_sender, needs_reply, summary, updated_at`

// FindThreadByKey returns the thread with the given key in an account,
// or nil when none exists.
func (s *SQLiteStore) FindThreadByKey(ctx context.Context, accountID, threadKey string) (*model.Thread, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+threadColumns+" FROM threads WHERE account_id = ? AND thread_key = ?",
		accountID, threadKey,
	)

	thread, err := scanThreadRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding thread by key %s: %w", threadKey, err)
	}

	return &thread, nil
}

// UpsertThread creates the thread on its first message and updates it
// in place afterwards. The row id stays stable across upserts on the
// same (account, thread key); subject, participants, timestamps, and
// the needs-reply flag are last-write-wins.
func (s *SQLiteStore) UpsertThread(ctx context.Context, thread model.Thread) (*model.Thread, error) {
	existing, err := s.FindThreadByKey(ctx, thread.AccountID, thread.ThreadKey)
	if err != nil {
		return nil, err
	}

	id := thread.ID
	if existing != nil {
		id = existing.ID
	}
	if id == "" {
		id = uuid.New().String()
	}

	participants, err := json.Marshal(thread.Participants)
	if err != nil {
		return nil, fmt.Errorf("marshaling participants: %w", err)
	}

	now := nowMillis()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (id, account_id, thread_key, subject, participants,
			last_message_at, last_sender, needs_reply, summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, thread_key) DO UPDATE SET
			subject = excluded.subject,
			participants = excluded.participants,
			last_message_at = excluded.last_message_at,
			last_sender = excluded.last_sender,
			needs_reply = excluded.needs_reply,
			summary = excluded.summary,
			updated_at = excluded.updated_at`,
		id, thread.AccountID, thread.ThreadKey, thread.Subject, string(participants),
		thread.LastMessageAt, thread.LastSender, boolToInt(thread.NeedsReply),
		thread.Summary, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting thread %s: %w", thread.ThreadKey, err)
	}

	result := thread
	result.ID = id
	result.UpdatedAt = now
	return &result, nil
}

// GetThread returns a thread by id, or nil when it does not exist.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) (*model.Thread, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+threadColumns+" FROM threads WHERE id = ? LIMIT 1", threadID,
	)

	thread, err := scanThreadRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting thread %s: %w", threadID, err)
	}

	return &thread, nil
}

// ListNeedsReply returns threads flagged as awaiting a reply, newest
// activity first.
func (s *SQLiteStore) ListNeedsReply(ctx context.Context, limit int) ([]model.Thread, error) {
	if limit <= 0 {
		limit = 25
	}

	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+threadColumns+" FROM threads WHERE needs_reply = 1 ORDER BY last_message_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying needs-reply threads: %w", err)
	}
	defer rows.Close()

	var threads []model.Thread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}

	return threads, rows.Err()
}

// SetThreadNeedsReply flips the needs-reply flag on a thread.
func (s *SQLiteStore) SetThreadNeedsReply(ctx context.Context, threadID string, needsReply bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE threads SET needs_reply = ?, updated_at = ? WHERE id = ?",
		boolToInt(needsReply), nowMillis(), threadID,
	)
	if err != nil {
		return fmt.Errorf("setting needs-reply on thread %s: %w", threadID, err)
	}
	return nil
}

// SetThreadSummary stores the latest draft snippet on a thread.
func (s *SQLiteStore) SetThreadSummary(ctx context.Context, threadID, summary string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE threads SET summary = ?, updated_at = ? WHERE id = ?",
		summary, nowMillis(), threadID,
	)
	if err != nil {
		return fmt.Errorf("setting summary on thread %s: %w", threadID, err)
	}
	return nil
}

// messageIDMatch matches a stored message_id against any candidate form
// of an id, including rows persisted before ids were normalized.
const messageIDMatch = `(
		message_id = ?
		OR message_id = ?
		OR message_id = ?
		OR lower(replace(replace(message_id, '<', ''), '>', '')) = ?
	)`

// HasMessage reports whether any persisted message in the account
// matches the given id under normalization.
func (s *SQLiteStore) HasMessage(ctx context.Context, accountID, messageID string) (bool, error) {
	candidates := mail.IDCandidates(messageID)
	if len(candidates) == 0 {
		return false, nil
	}
	a, b, c := padCandidates(candidates)

	var ok int
	err := s.db.GetContext(ctx, &ok,
		"SELECT 1 FROM messages WHERE account_id = ? AND "+messageIDMatch+" LIMIT 1",
		accountID, a, b, c, mail.NormalizeID(messageID),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking message %s: %w", messageID, err)
	}

	return true, nil
}

// FindThreadByReference returns the thread containing an already
// persisted message whose id matches the given reference. When several
// match, the thread of the newest message wins. Returns nil when the
// reference is unknown.
func (s *SQLiteStore) FindThreadByReference(ctx context.Context, accountID, reference string) (*model.Thread, error) {
	candidates := mail.IDCandidates(reference)
	if len(candidates) == 0 {
		return nil, nil
	}
	a, b, c := padCandidates(candidates)

	row := s.db.QueryRowxContext(ctx, `
		SELECT t.id, t.account_id, t.thread_key, t.subject, t.participants,
			t.last_message_at, t.last_sender, t.needs_reply, t.summary, t.updated_at
		FROM messages m
		JOIN threads t ON t.id = m.thread_id
		WHERE m.account_id = ?
			AND (
				m.message_id = ?
				OR m.message_id = ?
				OR m.message_id = ?
				OR lower(replace(replace(m.message_id, '<', ''), '>', '')) = ?
			)
		ORDER BY m.sent_at DESC
		LIMIT 1`,
		accountID, a, b, c, mail.NormalizeID(reference),
	)

	thread, err := scanThreadRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding thread by reference %s: %w", reference, err)
	}

	return &thread, nil
}

// InsertMessage persists a message with insert-or-ignore semantics:
// a second insert of the same (account, message id) is a no-op, which
// also resolves races against a concurrent dedup check.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	references, err := json.Marshal(msg.References)
	if err != nil {
		return fmt.Errorf("marshaling references: %w", err)
	}
	toAddresses, err := json.Marshal(msg.ToAddresses)
	if err != nil {
		return fmt.Errorf("marshaling to addresses: %w", err)
	}
	ccAddresses, err := json.Marshal(msg.CcAddresses)
	if err != nil {
		return fmt.Errorf("marshaling cc addresses: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages (
			id, account_id, thread_id, uid, message_id, in_reply_to, reference_ids,
			subject, from_address, from_name, to_addresses, cc_addresses,
			body_text, sent_at, raw_headers
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.AccountID, msg.ThreadID, int64(msg.UID), msg.MessageID,
		msg.InReplyTo, string(references), msg.Subject, msg.FromAddress,
		msg.FromName, string(toAddresses), string(ccAddresses), msg.BodyText,
		msg.SentAt, msg.RawHeaders,
	)
	if err != nil {
		return fmt.Errorf("inserting message %s: %w", msg.MessageID, err)
	}

	return nil
}

// MessagesForThread returns all messages in a thread, oldest first.
func (s *SQLiteStore) MessagesForThread(ctx context.Context, threadID string) ([]model.Message, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, account_id, thread_id, uid, message_id, in_reply_to,
			reference_ids, subject, from_address, from_name, to_addresses,
			cc_addresses, body_text, sent_at, raw_headers
		FROM messages
		WHERE thread_id = ?
		ORDER BY sent_at ASC`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages for thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// GetDraft returns the draft attached to a thread, or nil.
func (s *SQLiteStore) GetDraft(ctx context.Context, threadID string) (*model.Draft, error) {
	var row struct {
		ID        string `db:"id"`
		ThreadID  string `db:"thread_id"`
		Content   string `db:"content"`
		Status    string `db:"status"`
		UpdatedAt int64  `db:"updated_at"`
		Model     string `db:"model"`
	}

	err := s.db.GetContext(ctx, &row,
		"SELECT id, thread_id, content, status, updated_at, model FROM drafts WHERE thread_id = ? LIMIT 1",
		threadID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting draft for thread %s: %w", threadID, err)
	}

	return &model.Draft{
		ID:        row.ID,
		ThreadID:  row.ThreadID,
		Content:   row.Content,
		Status:    model.DraftStatus(row.Status),
		UpdatedAt: row.UpdatedAt,
		Model:     row.Model,
	}, nil
}

// UpsertDraft writes the at-most-one draft for a thread, overwriting in
// place on regeneration. The row id stays stable across upserts.
func (s *SQLiteStore) UpsertDraft(ctx context.Context, draft model.Draft) (*model.Draft, error) {
	existing, err := s.GetDraft(ctx, draft.ThreadID)
	if err != nil {
		return nil, err
	}

	id := draft.ID
	if existing != nil {
		id = existing.ID
	}
	if id == "" {
		id = uuid.New().String()
	}

	now := nowMillis()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, thread_id, content, status, updated_at, model)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			content = excluded.content,
			status = excluded.status,
			updated_at = excluded.updated_at,
			model = excluded.model`,
		id, draft.ThreadID, draft.Content, string(draft.Status), now, draft.Model,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting draft for thread %s: %w", draft.ThreadID, err)
	}

	result := draft
	result.ID = id
	result.UpdatedAt = now
	return &result, nil
}

// ListRules returns all enabled rules in insertion order.
func (s *SQLiteStore) ListRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, kind, scope, pattern, value, enabled FROM rules WHERE enabled = 1 ORDER BY rowid",
	)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		var row struct {
			ID      string `db:"id"`
			Kind    string `db:"kind"`
			Scope   string `db:"scope"`
			Pattern string `db:"pattern"`
			Value   string `db:"value"`
			Enabled int    `db:"enabled"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scanning rule row: %w", err)
		}
		rules = append(rules, model.Rule{
			ID:      row.ID,
			Kind:    model.RuleKind(row.Kind),
			Scope:   row.Scope,
			Pattern: row.Pattern,
			Value:   row.Value,
			Enabled: row.Enabled != 0,
		})
	}

	return rules, rows.Err()
}

// UpsertRule inserts or replaces a rule by id.
func (s *SQLiteStore) UpsertRule(ctx context.Context, rule model.Rule) (*model.Rule, error) {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.Scope == "" {
		rule.Scope = "default"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (id, kind, scope, pattern, value, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			scope = excluded.scope,
			pattern = excluded.pattern,
			value = excluded.value,
			enabled = excluded.enabled`,
		rule.ID, string(rule.Kind), rule.Scope, rule.Pattern, rule.Value,
		boolToInt(rule.Enabled),
	)
	if err != nil {
		return nil, fmt.Errorf("upserting rule %s: %w", rule.ID, err)
	}

	return &rule, nil
}

// DeleteRule removes a rule by id.
func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule %s: %w", id, err)
	}
	return nil
}

// UpsertMemoryNote writes a note, unique per (scope, key). The row id
// stays stable across upserts.
func (s *SQLiteStore) UpsertMemoryNote(ctx context.Context, note model.MemoryNote) (*model.MemoryNote, error) {
	existing, err := s.GetMemoryNote(ctx, note.Scope, note.Key)
	if err != nil {
		return nil, err
	}

	id := note.ID
	if existing != nil {
		id = existing.ID
	}
	if id == "" {
		id = uuid.New().String()
	}

	now := nowMillis()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_notes (id, scope, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		id, string(note.Scope), note.Key, note.Value, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting memory note %s/%s: %w", note.Scope, note.Key, err)
	}

	result := note
	result.ID = id
	result.UpdatedAt = now
	return &result, nil
}

// GetMemoryNote returns one note by scope and key, or nil.
func (s *SQLiteStore) GetMemoryNote(ctx context.Context, scope model.NoteScope, key string) (*model.MemoryNote, error) {
	var row struct {
		ID        string `db:"id"`
		Scope     string `db:"scope"`
		Key       string `db:"key"`
		Value     string `db:"value"`
		UpdatedAt int64  `db:"updated_at"`
	}

	err := s.db.GetContext(ctx, &row,
		"SELECT id, scope, key, value, updated_at FROM memory_notes WHERE scope = ? AND key = ? LIMIT 1",
		string(scope), key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting memory note %s/%s: %w", scope, key, err)
	}

	return &model.MemoryNote{
		ID:        row.ID,
		Scope:     model.NoteScope(row.Scope),
		Key:       row.Key,
		Value:     row.Value,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// ListMemory returns all notes in a scope, most recently updated first.
func (s *SQLiteStore) ListMemory(ctx context.Context, scope model.NoteScope) ([]model.MemoryNote, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, scope, key, value, updated_at FROM memory_notes WHERE scope = ? ORDER BY updated_at DESC",
		string(scope),
	)
	if err != nil {
		return nil, fmt.Errorf("querying memory notes: %w", err)
	}
	defer rows.Close()

	var notes []model.MemoryNote
	for rows.Next() {
		var row struct {
			ID        string `db:"id"`
			Scope     string `db:"scope"`
			Key       string `db:"key"`
			Value     string `db:"value"`
			UpdatedAt int64  `db:"updated_at"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scanning memory note row: %w", err)
		}
		notes = append(notes, model.MemoryNote{
			ID:        row.ID,
			Scope:     model.NoteScope(row.Scope),
			Key:       row.Key,
			Value:     row.Value,
			UpdatedAt: row.UpdatedAt,
		})
	}

	return notes, rows.Err()
}

// scanThread scans a thread row from a sqlx.Rows result set.
func scanThread(rows *sqlx.Rows) (model.Thread, error) {
	var (
		thread       model.Thread
		participants string
		needsReply   int
	)

	err := rows.Scan(
		&thread.ID, &thread.AccountID, &thread.ThreadKey, &thread.Subject,
		&participants, &thread.LastMessageAt, &thread.LastSender,
		&needsReply, &thread.Summary, &thread.UpdatedAt,
	)
	if err != nil {
		return model.Thread{}, fmt.Errorf("scanning thread row: %w", err)
	}

	thread.Participants = decodeStringArray(participants)
	thread.NeedsReply = needsReply != 0

	return thread, nil
}

// scanThreadRow scans a single thread row from a sqlx.Row.
func scanThreadRow(row *sqlx.Row) (model.Thread, error) {
	var (
		thread       model.Thread
		participants string
		needsReply   int
	)

	err := row.Scan(
		&thread.ID, &thread.AccountID, &thread.ThreadKey, &thread.Subject,
		&participants, &thread.LastMessageAt, &thread.LastSender,
		&needsReply, &thread.Summary, &thread.UpdatedAt,
	)
	if err != nil {
		return model.Thread{}, err
	}

	thread.Participants = decodeStringArray(participants)
	thread.NeedsReply = needsReply != 0

	return thread, nil
}

// scanMessage scans a message row from a sqlx.Rows result set.
func scanMessage(rows *sqlx.Rows) (model.Message, error) {
	var (
		msg  model.Message
		uid  int64
		refs string
		to   string
		cc   string
	)

	err := rows.Scan(
		&msg.ID, &msg.AccountID, &msg.ThreadID, &uid, &msg.MessageID,
		&msg.InReplyTo, &refs, &msg.Subject, &msg.FromAddress, &msg.FromName,
		&to, &cc, &msg.BodyText, &msg.SentAt, &msg.RawHeaders,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("scanning message row: %w", err)
	}

	msg.UID = uint32(uid)
	msg.References = decodeStringArray(refs)
	msg.ToAddresses = decodeStringArray(to)
	msg.CcAddresses = decodeStringArray(cc)

	return msg, nil
}

// decodeStringArray decodes a JSON-encoded TEXT column into a string
// slice. Malformed or empty input decodes to an empty slice; a corrupt
// row must not fail the cycle that reads it.
func decodeStringArray(input string) []string {
	if input == "" {
		return []string{}
	}

	var out []string
	if err := json.Unmarshal([]byte(input), &out); err != nil {
		return []string{}
	}
	if out == nil {
		return []string{}
	}

	return out
}

// padCandidates widens the candidate list to exactly three values so it
// can bind a fixed-arity SQL match expression.
func padCandidates(candidates []string) (string, string, string) {
	base := candidates[0]
	a, b, c := base, base, base
	if len(candidates) > 1 {
		b = candidates[1]
	}
	if len(candidates) > 2 {
		c = candidates[2]
	}
	return a, b, c
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
