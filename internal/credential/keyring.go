// Package credential stores secrets (IMAP passwords, LLM API keys) in
// the system keyring, with an encrypted file backend as the fallback on
// headless machines.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "snd"

// Keys follow "<kind>:<id>[:<field>]", for example "imap:work:password"
// or "llm:default".

// IMAPPasswordKey returns the keyring key holding the IMAP password for
// an account.
func IMAPPasswordKey(accountID string) string {
	return fmt.Sprintf("imap:%s:password", accountID)
}

// Store reads and writes secrets in the system keyring. The zero value
// is ready to use; each call opens the ring so backend availability is
// re-evaluated per operation.
type Store struct{}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/snd/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("snd-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a secret by key.
func (Store) Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a secret by key.
func (Store) Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a secret by key.
func (Store) Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
