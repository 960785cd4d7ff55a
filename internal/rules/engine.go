package rules

import (
	"fmt"
	"strings"

	"github.com/sndlabs/snd/internal/model"
)

// Decision is the outcome of an ignore check.
type Decision struct {
	Ignore bool
	Reason string
}

// Engine evaluates configured and stored rules against a message
// sender. It is a pure evaluator: it holds no state and never touches
// the store directly.
type Engine struct{}

// New returns a rule engine.
func New() *Engine {
	return &Engine{}
}

// ShouldIgnore decides whether a message from sender should be dropped
// before persistence. Evaluation order is fixed: configured
// ignore-senders (exact, case-insensitive), configured ignore-domains
// (exact), then enabled DB rules in their listed order. DB rule
// patterns are fragments matched by substring containment. First match
// wins.
func (e *Engine) ShouldIgnore(sender string, cfg model.RulesConfig, dbRules []model.Rule) Decision {
	normalized := strings.ToLower(strings.TrimSpace(sender))
	domain := senderDomain(normalized)

	for _, entry := range cfg.IgnoreSenders {
		if strings.ToLower(entry) == normalized {
			return Decision{Ignore: true, Reason: fmt.Sprintf("ignored sender (%s) from config", normalized)}
		}
	}

	if domain != "" {
		for _, entry := range cfg.IgnoreDomains {
			if strings.ToLower(entry) == domain {
				return Decision{Ignore: true, Reason: fmt.Sprintf("ignored domain (%s) from config", domain)}
			}
		}
	}

	for _, rule := range dbRules {
		if !rule.Enabled {
			continue
		}

		pattern := strings.ToLower(rule.Pattern)
		if rule.Kind == model.RuleKindIgnoreSender && strings.Contains(normalized, pattern) {
			return Decision{Ignore: true, Reason: fmt.Sprintf("rule %s matched sender", rule.ID)}
		}
		if rule.Kind == model.RuleKindIgnoreDomain && domain != "" && strings.Contains(domain, pattern) {
			return Decision{Ignore: true, Reason: fmt.Sprintf("rule %s matched domain", rule.ID)}
		}
	}

	return Decision{}
}

// ResolveVibe picks the drafting tone for a sender: the first
// configured style rule whose match fragment appears in the sender
// wins, then the first enabled stored style rule, then the global
// default. Containment rather than equality is deliberate; matches are
// fragments like a domain or local-part.
func (e *Engine) ResolveVibe(sender string, cfg model.RulesConfig, dbRules []model.Rule) string {
	normalized := strings.ToLower(sender)

	for _, style := range cfg.Styles {
		if style.Match != "" && strings.Contains(normalized, strings.ToLower(style.Match)) {
			return style.Vibe
		}
	}

	for _, rule := range dbRules {
		if rule.Enabled && rule.Kind == model.RuleKindStyle &&
			strings.Contains(normalized, strings.ToLower(rule.Pattern)) {
			return rule.Value
		}
	}

	return cfg.GlobalVibe
}

func senderDomain(sender string) string {
	if at := strings.Index(sender, "@"); at >= 0 && at < len(sender)-1 {
		return sender[at+1:]
	}
	return ""
}
