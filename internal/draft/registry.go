package draft

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sndlabs/snd/internal/model"
)

// Registry holds the producers compiled into the binary. Producer
// lookup is by the name users put in agent.producers; unknown names
// degrade to the default producer instead of failing the cycle.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Producer
	fallback Producer
	log      *logrus.Entry
}

// NewRegistry creates an empty registry. fallback is the producer used
// when a configured chain resolves to nothing; it must not be nil.
func NewRegistry(fallback Producer, log *logrus.Entry) *Registry {
	r := &Registry{
		byName:   make(map[string]Producer),
		fallback: fallback,
		log:      log,
	}
	r.Register(fallback)
	return r
}

// Register adds a producer under its own name, replacing any previous
// registration with that name.
func (r *Registry) Register(p Producer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[p.Name()] = p
}

// Resolve maps configured producer names to a chain, preserving order.
// Unknown names are logged and skipped. An empty result falls back to
// the default producer, so the returned chain is never empty.
func (r *Registry) Resolve(names []string) *Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var producers []Producer
	for _, name := range names {
		p, ok := r.byName[name]
		if !ok {
			if r.log != nil {
				r.log.WithField("producer", name).Warn("unknown draft producer in config, skipping")
			}
			continue
		}
		producers = append(producers, p)
	}

	if len(producers) == 0 {
		producers = []Producer{r.fallback}
	}

	return &Chain{producers: producers, log: r.log}
}

// Chain tries producers in order until one yields a draft. A producer
// failure or a nil result degrades to the next producer rather than
// aborting.
type Chain struct {
	producers []Producer
	log       *logrus.Entry
}

// Generate runs the chain. It returns the first usable draft, (nil,
// nil) when every producer declined, or the last error when every
// producer that ran failed.
func (c *Chain) Generate(ctx context.Context, req Request) (*Result, error) {
	var lastErr error

	for _, p := range c.producers {
		result, err := p.Generate(ctx, req)
		if err != nil {
			lastErr = err
			if c.log != nil {
				c.log.WithField("producer", p.Name()).Warnf("draft producer failed: %v", err)
			}
			continue
		}
		if result == nil {
			continue
		}
		return result, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// Builder resolves the active chain for the current configuration and
// caches it against a content signature of the settings that shape it.
// When the signature changes between calls the chain is rebuilt; when
// it matches, the cached instance is reused. The cache holds exactly
// one entry.
type Builder struct {
	registry *Registry

	mu        sync.Mutex
	signature string
	chain     *Chain
}

// NewBuilder creates a chain builder over registry.
func NewBuilder(registry *Registry) *Builder {
	return &Builder{registry: registry}
}

// ChainFor returns the chain for cfg, rebuilding it only when the
// drafting-relevant configuration changed since the previous call.
func (b *Builder) ChainFor(cfg *model.Config) (*Chain, error) {
	sig, err := chainSignature(cfg)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.chain != nil && b.signature == sig {
		return b.chain, nil
	}

	names := cfg.Agent.Producers
	if !cfg.Agent.Enabled {
		names = nil
	}

	b.chain = b.registry.Resolve(names)
	b.signature = sig
	return b.chain, nil
}

// chainSignature hashes the configuration fields that influence chain
// construction. JSON with fixed field order keeps the encoding
// canonical.
func chainSignature(cfg *model.Config) (string, error) {
	payload := struct {
		Provider  string   `json:"provider"`
		BaseURL   string   `json:"base_url"`
		Model     string   `json:"model"`
		SecretKey string   `json:"secret_key"`
		Enabled   bool     `json:"enabled"`
		Producers []string `json:"producers"`
	}{
		Provider:  cfg.LLM.Provider,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		SecretKey: cfg.LLM.APIKeySecretKey,
		Enabled:   cfg.Agent.Enabled,
		Producers: cfg.Agent.Producers,
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding chain signature: %w", err)
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
