package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sndlabs/snd/internal/model"
	"github.com/sndlabs/snd/tests/testutil"
)

func TestSyncStateRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	// An account that has never synced gets a zero state, not an error.
	state, err := s.GetSyncState(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), state.LastUID)

	require.NoError(t, s.UpsertSyncState(ctx, model.SyncState{
		AccountID:  "acct-1",
		LastUID:    420,
		LastSyncAt: 1700000000000,
	}))

	state, err = s.GetSyncState(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint32(420), state.LastUID)
	assert.Equal(t, int64(1700000000000), state.LastSyncAt)
}

func TestUpsertAccountIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	acct := model.Account{
		ID: "acct-1", Email: "me@example.com", Provider: "imap",
		Host: "imap.example.com", Port: 993, Secure: true,
		Username: "me@example.com", Auth: "password",
	}
	require.NoError(t, s.UpsertAccount(ctx, acct))

	acct.Host = "imap2.example.com"
	require.NoError(t, s.UpsertAccount(ctx, acct))
}

func TestUpsertThreadStableID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertThread(ctx, model.Thread{
		AccountID: "acct-1", ThreadKey: "ref:root@host",
		Subject: "Status", LastMessageAt: 100, LastSender: "a@example.com",
		NeedsReply: true, Participants: []string{"a@example.com"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := s.UpsertThread(ctx, model.Thread{
		AccountID: "acct-1", ThreadKey: "ref:root@host",
		Subject: "Re: Status", LastMessageAt: 200, LastSender: "b@example.com",
		NeedsReply: true, Participants: []string{"a@example.com", "b@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	loaded, err := s.FindThreadByKey(ctx, "acct-1", "ref:root@host")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Re: Status", loaded.Subject)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, loaded.Participants)
}

func TestHasMessageMatchesAllIDForms(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	thread, err := s.UpsertThread(ctx, model.Thread{
		AccountID: "acct-1", ThreadKey: "k", Subject: "s",
		LastMessageAt: 1, LastSender: "a@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, s.InsertMessage(ctx, model.Message{
		AccountID: "acct-1", ThreadID: thread.ID, UID: 1,
		MessageID: "<Msg-1@Example.com>", Subject: "s",
		FromAddress: "a@example.com", BodyText: "hi", SentAt: 1,
	}))

	for _, form := range []string{
		"<Msg-1@Example.com>",
		"msg-1@example.com",
		"<msg-1@example.com>",
		"  <MSG-1@example.com>  ",
	} {
		seen, err := s.HasMessage(ctx, "acct-1", form)
		require.NoError(t, err)
		assert.True(t, seen, "form %q", form)
	}

	seen, err := s.HasMessage(ctx, "acct-1", "<other@example.com>")
	require.NoError(t, err)
	assert.False(t, seen)

	// Same id under another account is a different message.
	seen, err = s.HasMessage(ctx, "acct-2", "<Msg-1@Example.com>")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestInsertMessageIgnoresDuplicates(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	thread, err := s.UpsertThread(ctx, model.Thread{
		AccountID: "acct-1", ThreadKey: "k", Subject: "s",
		LastMessageAt: 1, LastSender: "a@example.com",
	})
	require.NoError(t, err)

	msg := model.Message{
		AccountID: "acct-1", ThreadID: thread.ID, UID: 1,
		MessageID: "<m1@host>", Subject: "s",
		FromAddress: "a@example.com", BodyText: "first", SentAt: 1,
	}
	require.NoError(t, s.InsertMessage(ctx, msg))

	msg.BodyText = "second insert must be a no-op"
	require.NoError(t, s.InsertMessage(ctx, msg))

	messages, err := s.MessagesForThread(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "first", messages[0].BodyText)
}

func TestMessageArraysRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	thread, err := s.UpsertThread(ctx, model.Thread{
		AccountID: "acct-1", ThreadKey: "k", Subject: "s",
		LastMessageAt: 1, LastSender: "a@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, s.InsertMessage(ctx, model.Message{
		AccountID: "acct-1", ThreadID: thread.ID, UID: 2,
		MessageID: "<m2@host>", InReplyTo: "<m1@host>",
		References:  []string{"<root@host>", "<m1@host>"},
		Subject:     "s",
		FromAddress: "a@example.com",
		ToAddresses: []string{"b@example.com", "c@example.com"},
		CcAddresses: []string{"d@example.com"},
		BodyText:    "hi", SentAt: 2,
	}))

	messages, err := s.MessagesForThread(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, []string{"<root@host>", "<m1@host>"}, messages[0].References)
	assert.Equal(t, []string{"b@example.com", "c@example.com"}, messages[0].ToAddresses)
	assert.Equal(t, []string{"d@example.com"}, messages[0].CcAddresses)
}

func TestFindThreadByReference(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	thread, err := s.UpsertThread(ctx, model.Thread{
		AccountID: "acct-1", ThreadKey: "reply:m1@host", Subject: "s",
		LastMessageAt: 1, LastSender: "a@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, s.InsertMessage(ctx, model.Message{
		AccountID: "acct-1", ThreadID: thread.ID, UID: 1,
		MessageID: "<m1@host>", Subject: "s",
		FromAddress: "a@example.com", BodyText: "hi", SentAt: 1,
	}))

	found, err := s.FindThreadByReference(ctx, "acct-1", "M1@HOST")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, thread.ID, found.ID)

	found, err = s.FindThreadByReference(ctx, "acct-1", "<unknown@host>")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestNeedsReplyAndSummary(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	thread, err := s.UpsertThread(ctx, model.Thread{
		AccountID: "acct-1", ThreadKey: "k", Subject: "s",
		LastMessageAt: 5, LastSender: "a@example.com", NeedsReply: true,
	})
	require.NoError(t, err)

	threads, err := s.ListNeedsReply(ctx, 10)
	require.NoError(t, err)
	require.Len(t, threads, 1)

	require.NoError(t, s.SetThreadNeedsReply(ctx, thread.ID, false))
	require.NoError(t, s.SetThreadSummary(ctx, thread.ID, "drafted: hello"))

	threads, err = s.ListNeedsReply(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, threads)

	loaded, err := s.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "drafted: hello", loaded.Summary)
}

func TestUpsertDraftOverwritesInPlace(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertDraft(ctx, model.Draft{
		ThreadID: "thread-1", Content: "v1",
		Status: model.DraftStatusDrafted, Model: "gpt-4o-mini",
	})
	require.NoError(t, err)

	second, err := s.UpsertDraft(ctx, model.Draft{
		ThreadID: "thread-1", Content: "v2",
		Status: model.DraftStatusEdited, Model: "gpt-4o-mini",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	loaded, err := s.GetDraft(ctx, "thread-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "v2", loaded.Content)
	assert.Equal(t, model.DraftStatusEdited, loaded.Status)
}

func TestRulesLifecycle(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	enabled, err := s.UpsertRule(ctx, model.Rule{
		Kind: model.RuleKindIgnoreSender, Pattern: "no-reply", Enabled: true,
	})
	require.NoError(t, err)

	_, err = s.UpsertRule(ctx, model.Rule{
		Kind: model.RuleKindIgnoreDomain, Pattern: "spam.example", Enabled: false,
	})
	require.NoError(t, err)

	rules, err := s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, enabled.ID, rules[0].ID)

	require.NoError(t, s.DeleteRule(ctx, enabled.ID))

	rules, err = s.ListRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestMemoryNoteUniquePerScopeAndKey(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertMemoryNote(ctx, model.MemoryNote{
		Scope: model.NoteScopeThread, Key: "t1:context", Value: "v1",
	})
	require.NoError(t, err)

	second, err := s.UpsertMemoryNote(ctx, model.MemoryNote{
		Scope: model.NoteScopeThread, Key: "t1:context", Value: "v2",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Same key in another scope is a distinct note.
	_, err = s.UpsertMemoryNote(ctx, model.MemoryNote{
		Scope: model.NoteScopeUser, Key: "t1:context", Value: "v3",
	})
	require.NoError(t, err)

	note, err := s.GetMemoryNote(ctx, model.NoteScopeThread, "t1:context")
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, "v2", note.Value)

	threadNotes, err := s.ListMemory(ctx, model.NoteScopeThread)
	require.NoError(t, err)
	assert.Len(t, threadNotes, 1)
}
