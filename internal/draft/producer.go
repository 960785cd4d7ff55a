// Package draft turns a thread's history into a reply draft. Producers
// are named capabilities registered at startup; the sync engine talks
// to a resolved chain, never to a concrete provider.
package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/sndlabs/snd/internal/model"
)

// Request carries everything a producer needs for one draft.
type Request struct {
	ThreadID    string
	Model       string
	Vibe        string
	UserNotes   []string
	ThreadNotes []string
	Messages    []model.Message
	Instruction string
}

// Result is a usable draft. A producer that has nothing usable returns
// a nil Result with a nil error; that is "no draft", not a failure.
type Result struct {
	Content string
	Model   string
}

// Producer generates reply drafts.
type Producer interface {
	// Name identifies the producer in configuration.
	Name() string

	// Generate returns a draft, (nil, nil) when no usable content was
	// produced, or a ProducerError on a retryable provider failure.
	Generate(ctx context.Context, req Request) (*Result, error)
}

// ProducerError marks a provider-side failure that is safe to retry.
type ProducerError struct {
	Producer string
	Err      error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("producer %s: %v", e.Producer, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}

// IsProducerError reports whether err (or any error in its chain) is a
// ProducerError.
func IsProducerError(err error) bool {
	var pe *ProducerError
	return errors.As(err, &pe)
}

// SecretSource resolves named secrets (API keys) for producers.
type SecretSource interface {
	Get(key string) (string, error)
}
