package mail

import (
	"errors"
	"fmt"
)

// Address is a single decoded mailbox address.
type Address struct {
	Address string
	Name    string
}

// Message is one decoded message handed to the sync engine by a feed.
// The feed is responsible for MIME decoding; the engine only consumes
// the structured fields below.
type Message struct {
	UID        uint32
	MessageID  string
	InReplyTo  string
	References []string
	Subject    string
	From       Address
	To         []Address
	Cc         []Address
	SentAt     int64 // epoch milliseconds
	Text       string
	Headers    string
}

// Pull is the result of one incremental fetch above a watermark.
type Pull struct {
	Messages []Message
	MaxUID   uint32
}

// TransientError marks a connectivity or provider failure that is safe
// to retry with backoff.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err (or any error in its chain) is a
// TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
