package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Migration 2 rebuilds the messages table for databases created before
// the unique key became (account_id, message_id); the old shape was
// unique on message_id alone, which broke multi-account dedup. The
// rebuild keeps the first row per key (INSERT OR IGNORE), matching the
// insert-or-ignore contract of live ingestion.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	provider   TEXT NOT NULL,
	host       TEXT NOT NULL,
	port       INTEGER NOT NULL,
	secure     INTEGER NOT NULL,
	username   TEXT NOT NULL,
	auth       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
	account_id   TEXT PRIMARY KEY,
	last_uid     INTEGER NOT NULL DEFAULT 0,
	last_sync_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS threads (
	id              TEXT PRIMARY KEY,
	account_id      TEXT NOT NULL,
	thread_key      TEXT NOT NULL,
	subject         TEXT NOT NULL,
	participants    TEXT NOT NULL DEFAULT '[]',
	last_message_at INTEGER NOT NULL,
	last_sender     TEXT NOT NULL,
	needs_reply     INTEGER NOT NULL DEFAULT 1,
	summary         TEXT NOT NULL DEFAULT '',
	updated_at      INTEGER NOT NULL,
	UNIQUE(account_id, thread_key)
);

CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL,
	thread_id    TEXT NOT NULL,
	uid          INTEGER NOT NULL,
	message_id   TEXT NOT NULL,
	in_reply_to  TEXT NOT NULL DEFAULT '',
	reference_ids TEXT NOT NULL DEFAULT '[]',
	subject      TEXT NOT NULL,
	from_address TEXT NOT NULL,
	from_name    TEXT NOT NULL DEFAULT '',
	to_addresses TEXT NOT NULL DEFAULT '[]',
	cc_addresses TEXT NOT NULL DEFAULT '[]',
	body_text    TEXT NOT NULL,
	sent_at      INTEGER NOT NULL,
	raw_headers  TEXT NOT NULL DEFAULT '',
	UNIQUE(account_id, message_id)
);

CREATE TABLE IF NOT EXISTS drafts (
	id         TEXT PRIMARY KEY,
	thread_id  TEXT NOT NULL UNIQUE,
	content    TEXT NOT NULL,
	status     TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	model      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rules (
	id      TEXT PRIMARY KEY,
	kind    TEXT NOT NULL,
	scope   TEXT NOT NULL DEFAULT 'default',
	pattern TEXT NOT NULL,
	value   TEXT NOT NULL DEFAULT '',
	enabled INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS memory_notes (
	id         TEXT PRIMARY KEY,
	scope      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE(scope, key)
);

CREATE INDEX IF NOT EXISTS idx_messages_thread_id ON messages(thread_id);
CREATE INDEX IF NOT EXISTS idx_messages_account_message_id ON messages(account_id, message_id);
CREATE INDEX IF NOT EXISTS idx_threads_needs_reply ON threads(needs_reply, last_message_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS messages_rekeyed (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL,
	thread_id    TEXT NOT NULL,
	uid          INTEGER NOT NULL,
	message_id   TEXT NOT NULL,
	in_reply_to  TEXT NOT NULL DEFAULT '',
	reference_ids TEXT NOT NULL DEFAULT '[]',
	subject      TEXT NOT NULL,
	from_address TEXT NOT NULL,
	from_name    TEXT NOT NULL DEFAULT '',
	to_addresses TEXT NOT NULL DEFAULT '[]',
	cc_addresses TEXT NOT NULL DEFAULT '[]',
	body_text    TEXT NOT NULL,
	sent_at      INTEGER NOT NULL,
	raw_headers  TEXT NOT NULL DEFAULT '',
	UNIQUE(account_id, message_id)
);

INSERT OR IGNORE INTO messages_rekeyed (
	id, account_id, thread_id, uid, message_id, in_reply_to, reference_ids,
	subject, from_address, from_name, to_addresses, cc_addresses,
	body_text, sent_at, raw_headers
)
SELECT
	id, account_id, thread_id, uid, message_id, in_reply_to, reference_ids,
	subject, from_address, from_name, to_addresses, cc_addresses,
	body_text, sent_at, raw_headers
FROM messages;

DROP TABLE messages;
ALTER TABLE messages_rekeyed RENAME TO messages;

CREATE INDEX IF NOT EXISTS idx_messages_thread_id ON messages(thread_id);
CREATE INDEX IF NOT EXISTS idx_messages_account_message_id ON messages(account_id, message_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
