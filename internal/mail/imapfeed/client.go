// Package imapfeed pulls mailbox messages over IMAP and decodes them
// into the engine's message shape. It is the only package that speaks
// wire IMAP; everything above it consumes decoded messages.
package imapfeed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	gomail "github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"

	"github.com/sndlabs/snd/internal/credential"
	"github.com/sndlabs/snd/internal/mail"
	"github.com/sndlabs/snd/internal/model"
)

// PasswordSource resolves the IMAP password for an account.
type PasswordSource interface {
	Get(key string) (string, error)
}

// Feed fetches incremental message batches for configured accounts.
type Feed struct {
	secrets PasswordSource
	log     *logrus.Entry
}

// New creates an IMAP feed that resolves passwords through secrets.
func New(secrets PasswordSource, log *logrus.Entry) *Feed {
	return &Feed{secrets: secrets, log: log}
}

// FetchSince pulls messages with UID above lastUID from the account's
// INBOX. When lastUID is zero the account has never been synced and the
// most recent bootstrapWindow messages are pulled instead. Connectivity
// and protocol failures come back wrapped in mail.TransientError so the
// caller can retry them.
func (f *Feed) FetchSince(
	ctx context.Context,
	acct model.AccountConfig,
	lastUID uint32,
	bootstrapWindow int,
) (*mail.Pull, error) {
	password, err := f.secrets.Get(credential.IMAPPasswordKey(acct.ID))
	if err != nil {
		return nil, fmt.Errorf(
			"no IMAP password for account %s: run `snd auth --account %s`: %w",
			acct.ID, acct.ID, err,
		)
	}

	client, err := f.connect(acct, password)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, &mail.TransientError{Op: "select", Err: err}
	}

	uidSet, empty, err := f.uidsToFetch(client, lastUID, bootstrapWindow)
	if err != nil {
		return nil, err
	}
	if empty {
		return &mail.Pull{MaxUID: lastUID}, nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	pull := &mail.Pull{MaxUID: lastUID}
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			if f.log != nil {
				f.log.Warnf("skipping unreadable message: %v", err)
			}
			continue
		}

		decoded := decodeMessage(buf, bodySection)
		if decoded.UID <= lastUID {
			// Servers may return the boundary message for an open range.
			continue
		}

		pull.Messages = append(pull.Messages, decoded)
		if decoded.UID > pull.MaxUID {
			pull.MaxUID = decoded.UID
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, &mail.TransientError{Op: "fetch", Err: err}
	}

	return pull, nil
}

func (f *Feed) connect(acct model.AccountConfig, password string) (*imapclient.Client, error) {
	addr := acct.IMAP.Host + ":" + strconv.Itoa(acct.IMAP.Port)

	var client *imapclient.Client
	var err error

	if acct.IMAP.Secure {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, &mail.TransientError{Op: "dial", Err: fmt.Errorf("connecting to %s: %w", addr, err)}
	}

	if err := client.Login(acct.IMAP.Username, password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", acct.IMAP.Username, err)
	}

	return client, nil
}

// uidsToFetch builds the UID set for one pull. Incremental pulls use an
// open range above the watermark; bootstrap pulls search everything and
// keep only the newest window.
func (f *Feed) uidsToFetch(
	client *imapclient.Client, lastUID uint32, bootstrapWindow int,
) (imap.UIDSet, bool, error) {
	if lastUID > 0 {
		var set imap.UIDSet
		set.AddRange(imap.UID(lastUID+1), 0)
		return set, false, nil
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, false, &mail.TransientError{Op: "search", Err: err}
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, true, nil
	}
	if bootstrapWindow > 0 && len(uids) > bootstrapWindow {
		uids = uids[len(uids)-bootstrapWindow:]
	}

	return imap.UIDSetNum(uids...), false, nil
}

// decodeMessage turns a fetched buffer into the engine's message shape.
// Missing identity fields get deterministic fallbacks so downstream
// dedup and threading always have something to key on.
func decodeMessage(
	buf *imapclient.FetchMessageBuffer, bodySection *imap.FetchItemBodySection,
) mail.Message {
	msg := mail.Message{UID: uint32(buf.UID)}

	if buf.Envelope != nil {
		msg.MessageID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		if !buf.Envelope.Date.IsZero() {
			msg.SentAt = buf.Envelope.Date.UnixMilli()
		}
		if len(buf.Envelope.From) > 0 {
			msg.From = toAddress(buf.Envelope.From[0])
		}
		for _, addr := range buf.Envelope.To {
			msg.To = append(msg.To, toAddress(addr))
		}
		for _, addr := range buf.Envelope.Cc {
			msg.Cc = append(msg.Cc, toAddress(addr))
		}
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		msg.Headers = rawHeaderBlock(raw)
		text, inReplyTo, references := parseBody(raw)
		msg.Text = text
		msg.InReplyTo = inReplyTo
		msg.References = references
	}

	if strings.TrimSpace(msg.MessageID) == "" {
		msg.MessageID = fmt.Sprintf("<snd-fallback-%d@local>", msg.UID)
	}
	if strings.TrimSpace(msg.Subject) == "" {
		msg.Subject = "(no subject)"
	}
	if msg.SentAt == 0 {
		msg.SentAt = time.Now().UnixMilli()
	}

	return msg
}

func toAddress(addr imap.Address) mail.Address {
	return mail.Address{Address: addr.Addr(), Name: addr.Name}
}

// parseBody extracts the text/plain part and the threading headers from
// a raw RFC 5322 message. A message that cannot be MIME-parsed is
// treated as plain text in full.
func parseBody(raw []byte) (text, inReplyTo string, references []string) {
	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw), "", nil
	}
	defer mr.Close()

	if ids, err := mr.Header.MsgIDList("In-Reply-To"); err == nil && len(ids) > 0 {
		inReplyTo = ids[0]
	}
	if ids, err := mr.Header.MsgIDList("References"); err == nil {
		references = ids
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		if !strings.HasPrefix(contentType, "text/plain") {
			continue
		}

		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}
		text = string(body)
		break
	}

	return text, inReplyTo, references
}

// rawHeaderBlock returns the header section of a raw message, capped so
// pathological headers do not bloat the store.
func rawHeaderBlock(raw []byte) string {
	const maxHeaderBytes = 8 * 1024

	end := bytes.Index(raw, []byte("\r\n\r\n"))
	if end < 0 {
		end = bytes.Index(raw, []byte("\n\n"))
	}
	if end < 0 {
		end = len(raw)
	}
	if end > maxHeaderBytes {
		end = maxHeaderBytes
	}

	return string(raw[:end])
}
