// Package sync implements the incremental mailbox sync cycle: fetch new
// messages per account, deduplicate, thread, filter, draft replies, and
// advance the per-account watermark.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	stdsync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sndlabs/snd/internal/draft"
	"github.com/sndlabs/snd/internal/mail"
	"github.com/sndlabs/snd/internal/memory"
	"github.com/sndlabs/snd/internal/model"
	"github.com/sndlabs/snd/internal/retry"
	"github.com/sndlabs/snd/internal/rules"
	"github.com/sndlabs/snd/internal/store"
)

// ErrCycleInFlight is returned when a cycle is requested while another
// one is still running. The caller reports it as a skip, never queues.
var ErrCycleInFlight = errors.New("sync cycle already in flight")

// noReplyMarkers are body fragments that mark a message as not
// expecting a reply. Substring match on the lowercased cleaned body.
var noReplyMarkers = []string{"fyi", "no reply needed", "noreply", "automated"}

// Feed is the transport collaborator that pulls messages above a
// watermark. bootstrapWindow bounds the pull when lastUID is zero.
type Feed interface {
	FetchSince(ctx context.Context, acct model.AccountConfig, lastUID uint32, bootstrapWindow int) (*mail.Pull, error)
}

// Stats summarizes one account's completed cycle.
type Stats struct {
	AccountID string
	Fetched   int
	Imported  int
	Drafted   int
	Ignored   int
}

// Syncer coordinates sync cycles across all configured accounts. Only
// one cycle may be in flight at a time; messages within an account are
// processed strictly in fetch order.
type Syncer struct {
	store   store.Store
	feed    Feed
	rules   *rules.Engine
	memory  *memory.Service
	builder *draft.Builder
	log     *logrus.Entry

	fetchRetry retry.Policy
	draftRetry retry.Policy

	cycleMu stdsync.Mutex
}

// New creates a syncer over the given collaborators.
func New(
	st store.Store,
	feed Feed,
	ruleEngine *rules.Engine,
	mem *memory.Service,
	builder *draft.Builder,
	log *logrus.Entry,
) *Syncer {
	return &Syncer{
		store:      st,
		feed:       feed,
		rules:      ruleEngine,
		memory:     mem,
		builder:    builder,
		log:        log,
		fetchRetry: retry.Policy{Attempts: 3, BaseDelay: 400 * time.Millisecond},
		draftRetry: retry.Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond},
	}
}

// RunOnce runs one sync cycle. accountID narrows the cycle to a single
// configured account; empty means all. Returns stats for every account
// that reached checkpointing plus the joined errors of accounts that
// failed earlier; partial success is expected and not masked as total
// failure. A second concurrent call fails fast with ErrCycleInFlight.
func (s *Syncer) RunOnce(ctx context.Context, cfg *model.Config, accountID string) ([]Stats, error) {
	if !s.cycleMu.TryLock() {
		return nil, ErrCycleInFlight
	}
	defer s.cycleMu.Unlock()

	accounts, err := selectAccounts(cfg, accountID)
	if err != nil {
		return nil, err
	}

	chain, err := s.builder.ChainFor(cfg)
	if err != nil {
		return nil, err
	}

	var (
		allStats []Stats
		errs     []error
	)
	for _, acct := range accounts {
		stats, err := s.syncAccount(ctx, cfg, chain, acct)
		if err != nil {
			s.log.WithField("account", acct.ID).Errorf("sync failed: %v", err)
			errs = append(errs, fmt.Errorf("account %s: %w", acct.ID, err))
			continue
		}
		allStats = append(allStats, stats)
	}

	return allStats, errors.Join(errs...)
}

func selectAccounts(cfg *model.Config, accountID string) ([]model.AccountConfig, error) {
	if len(cfg.Accounts) == 0 {
		return nil, errors.New("no accounts configured: run `snd accounts add` first")
	}

	if accountID == "" {
		return cfg.Accounts, nil
	}

	for _, acct := range cfg.Accounts {
		if acct.ID == accountID {
			return []model.AccountConfig{acct}, nil
		}
	}

	return nil, fmt.Errorf("unknown account %q", accountID)
}

// syncAccount runs the cycle for one account. A fetch failure after
// retries aborts this account only; per-message draft failures are
// handled locally and never abort the cycle.
func (s *Syncer) syncAccount(
	ctx context.Context,
	cfg *model.Config,
	chain *draft.Chain,
	acct model.AccountConfig,
) (Stats, error) {
	stats := Stats{AccountID: acct.ID}
	log := s.log.WithField("account", acct.ID)

	err := s.store.UpsertAccount(ctx, model.Account{
		ID:       acct.ID,
		Email:    acct.Email,
		Provider: acct.Provider,
		Host:     acct.IMAP.Host,
		Port:     acct.IMAP.Port,
		Secure:   acct.IMAP.Secure,
		Username: acct.IMAP.Username,
		Auth:     acct.IMAP.Auth,
	})
	if err != nil {
		return stats, err
	}

	state, err := s.store.GetSyncState(ctx, acct.ID)
	if err != nil {
		return stats, err
	}
	bootstrap := state.LastUID == 0

	window := 0
	if bootstrap {
		window = cfg.Sync.BootstrapMessageWindow
	}

	pull, err := retry.Do(ctx, s.fetchRetry, "fetch", log,
		func(ctx context.Context) (*mail.Pull, error) {
			return s.feed.FetchSince(ctx, acct, state.LastUID, window)
		})
	if err != nil {
		return stats, fmt.Errorf("fetching messages: %w", err)
	}

	stats.Fetched = len(pull.Messages)

	var bootstrapKeys map[string]struct{}
	if bootstrap {
		bootstrapKeys = SelectLatestThreadKeys(pull.Messages, cfg.Sync.BootstrapThreadLimit)
	}

	dbRules, err := s.store.ListRules(ctx)
	if err != nil {
		return stats, err
	}

	pending := newPendingDrafts()
	for _, msg := range pull.Messages {
		if bootstrap {
			if _, ok := bootstrapKeys[mail.DeriveThreadKey(msg)]; !ok {
				continue
			}
		}

		if err := s.processMessage(ctx, cfg, acct, dbRules, msg, pending, &stats); err != nil {
			return stats, fmt.Errorf("processing message %s: %w", msg.MessageID, err)
		}
	}

	for _, threadID := range pending.order {
		msg, ok := pending.byThread[threadID]
		if !ok {
			continue
		}
		delete(pending.byThread, threadID)
		s.draftReply(ctx, cfg, chain, acct, dbRules, msg, threadID, &stats)
	}

	maxUID := state.LastUID
	if pull.MaxUID > maxUID {
		maxUID = pull.MaxUID
	}
	err = s.store.UpsertSyncState(ctx, model.SyncState{
		AccountID:  acct.ID,
		LastUID:    maxUID,
		LastSyncAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return stats, fmt.Errorf("advancing watermark: %w", err)
	}

	log.WithFields(logrus.Fields{
		"fetched":  stats.Fetched,
		"imported": stats.Imported,
		"drafted":  stats.Drafted,
		"ignored":  stats.Ignored,
	}).Info("sync cycle complete")

	return stats, nil
}

// pendingDrafts tracks, per thread, the latest ingested message that
// still warrants a reply draft. A later outbound or no-reply message on
// the same thread withdraws it. Drafting runs once per thread after the
// whole pull is ingested, in first-seen thread order.
type pendingDrafts struct {
	order    []string
	byThread map[string]mail.Message
}

func newPendingDrafts() *pendingDrafts {
	return &pendingDrafts{byThread: make(map[string]mail.Message)}
}

func (p *pendingDrafts) set(threadID string, msg mail.Message) {
	if _, ok := p.byThread[threadID]; !ok {
		p.order = append(p.order, threadID)
	}
	p.byThread[threadID] = msg
}

func (p *pendingDrafts) withdraw(threadID string) {
	delete(p.byThread, threadID)
}

// processMessage ingests one fetched message: dedup, rule filter,
// thread resolution, and persistence. Messages that leave their thread
// needing a reply are queued for the drafting phase.
func (s *Syncer) processMessage(
	ctx context.Context,
	cfg *model.Config,
	acct model.AccountConfig,
	dbRules []model.Rule,
	msg mail.Message,
	pending *pendingDrafts,
	stats *Stats,
) error {
	log := s.log.WithField("account", acct.ID)

	seen, err := s.store.HasMessage(ctx, acct.ID, msg.MessageID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	if decision := s.rules.ShouldIgnore(msg.From.Address, cfg.Rules, dbRules); decision.Ignore {
		log.WithField("reason", decision.Reason).Debug("message ignored")
		stats.Ignored++
		return nil
	}

	threadKey, err := s.resolveThreadKey(ctx, acct.ID, msg)
	if err != nil {
		return err
	}

	inbound := !strings.EqualFold(msg.From.Address, acct.Email)

	existing, err := s.store.FindThreadByKey(ctx, acct.ID, threadKey)
	if err != nil {
		return err
	}

	thread, err := s.store.UpsertThread(ctx, model.Thread{
		AccountID:     acct.ID,
		ThreadKey:     threadKey,
		Subject:       msg.Subject,
		Participants:  mergeParticipants(existing, msg),
		LastMessageAt: msg.SentAt,
		LastSender:    msg.From.Address,
		NeedsReply:    inbound,
		Summary:       threadSummary(existing),
	})
	if err != nil {
		return err
	}

	body := mail.CleanBody(msg.Text)
	if !mail.HasContent(body) {
		body = "(no text body)"
	}

	err = s.store.InsertMessage(ctx, model.Message{
		AccountID:   acct.ID,
		ThreadID:    thread.ID,
		UID:         msg.UID,
		MessageID:   msg.MessageID,
		InReplyTo:   msg.InReplyTo,
		References:  msg.References,
		Subject:     msg.Subject,
		FromAddress: msg.From.Address,
		FromName:    msg.From.Name,
		ToAddresses: addressList(msg.To),
		CcAddresses: addressList(msg.Cc),
		BodyText:    body,
		SentAt:      msg.SentAt,
		RawHeaders:  msg.Headers,
	})
	if err != nil {
		return err
	}
	stats.Imported++

	history, err := s.store.MessagesForThread(ctx, thread.ID)
	if err != nil {
		return err
	}

	if err := s.memory.RememberThreadContext(ctx, thread.ID, threadContext(history)); err != nil {
		log.Warnf("saving thread context: %v", err)
	}

	if !inbound || matchesNoReply(body) {
		if err := s.store.SetThreadNeedsReply(ctx, thread.ID, false); err != nil {
			return err
		}
		pending.withdraw(thread.ID)
		return nil
	}

	pending.set(thread.ID, msg)
	return nil
}

// draftReply attempts draft generation for one thread. A producer
// failure after retries skips only this thread's draft; the thread
// stays flagged for a future attempt and the cycle continues.
func (s *Syncer) draftReply(
	ctx context.Context,
	cfg *model.Config,
	chain *draft.Chain,
	acct model.AccountConfig,
	dbRules []model.Rule,
	msg mail.Message,
	threadID string,
	stats *Stats,
) {
	log := s.log.WithFields(logrus.Fields{"account": acct.ID, "thread": threadID})

	vibe := s.rules.ResolveVibe(msg.From.Address, cfg.Rules, dbRules)

	history, err := s.store.MessagesForThread(ctx, threadID)
	if err != nil {
		log.Warnf("loading thread history: %v", err)
		return
	}

	userNotes, err := s.memory.UserNotes(ctx)
	if err != nil {
		log.Warnf("loading user notes: %v", err)
	}
	threadNotes, err := s.memory.ThreadNotes(ctx, threadID)
	if err != nil {
		log.Warnf("loading thread notes: %v", err)
	}

	req := draft.Request{
		ThreadID:    threadID,
		Model:       cfg.LLM.Model,
		Vibe:        vibe,
		UserNotes:   userNotes,
		ThreadNotes: threadNotes,
		Messages:    history,
	}

	result, err := retry.Do(ctx, s.draftRetry, "draft", log,
		func(ctx context.Context) (*draft.Result, error) {
			return chain.Generate(ctx, req)
		})
	if err != nil {
		log.Warnf("draft generation failed, thread left needing reply: %v", err)
		return
	}
	if result == nil {
		log.Debug("producer returned no usable draft")
		return
	}

	if _, err := s.store.UpsertDraft(ctx, model.Draft{
		ThreadID: threadID,
		Content:  result.Content,
		Status:   model.DraftStatusDrafted,
		Model:    result.Model,
	}); err != nil {
		log.Warnf("persisting draft: %v", err)
		return
	}

	snippet := mail.Snippet(result.Content, 280)
	if err := s.store.SetThreadSummary(ctx, threadID, snippet); err != nil {
		log.Warnf("updating thread summary: %v", err)
	}
	if err := s.memory.RememberDraftPattern(ctx, threadID, mail.Snippet(result.Content, 180)); err != nil {
		log.Warnf("saving draft pattern: %v", err)
	}

	stats.Drafted++
}

// resolveThreadKey picks the thread key for a message. A reference or
// in-reply-to id matching an already persisted message reuses that
// message's thread key, repairing chains whose root was never fetched;
// otherwise the key is derived fresh.
func (s *Syncer) resolveThreadKey(ctx context.Context, accountID string, msg mail.Message) (string, error) {
	candidates := make([]string, 0, len(msg.References)+1)
	candidates = append(candidates, msg.References...)
	if msg.InReplyTo != "" {
		candidates = append(candidates, msg.InReplyTo)
	}

	for _, ref := range candidates {
		thread, err := s.store.FindThreadByReference(ctx, accountID, ref)
		if err != nil {
			return "", err
		}
		if thread != nil {
			return thread.ThreadKey, nil
		}
	}

	return mail.DeriveThreadKey(msg), nil
}

// threadContext compacts the tail of a thread's history into the
// rolling context note used to bias future drafts.
func threadContext(history []model.Message) string {
	tail := history
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}

	parts := make([]string, 0, len(tail))
	for _, msg := range tail {
		parts = append(parts, msg.FromAddress+": "+mail.Snippet(msg.BodyText, 180))
	}

	return strings.Join(parts, " | ")
}

func matchesNoReply(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range noReplyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// mergeParticipants unions a thread's known participants with the
// addresses on a new message, preserving first-seen order.
func mergeParticipants(existing *model.Thread, msg mail.Message) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	if existing != nil {
		for _, addr := range existing.Participants {
			add(addr)
		}
	}
	add(msg.From.Address)
	for _, addr := range msg.To {
		add(addr.Address)
	}
	for _, addr := range msg.Cc {
		add(addr.Address)
	}

	return out
}

func threadSummary(existing *model.Thread) string {
	if existing == nil {
		return ""
	}
	return existing.Summary
}

func addressList(addrs []mail.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.Address)
	}
	return out
}
