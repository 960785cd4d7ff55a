package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// configVersion is the current config schema version. Version 1 carried
// the agent toggle as llm.use_deep_agents; version 2 moved it into the
// agent block.
const configVersion = 2

// IMAPConfig holds the connection settings for one mailbox.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Secure   bool   `mapstructure:"secure" yaml:"secure"`
	Username string `mapstructure:"username" yaml:"username"`
	Auth     string `mapstructure:"auth" yaml:"auth"`
}

// AccountConfig describes one configured mailbox account.
type AccountConfig struct {
	ID       string     `mapstructure:"id" yaml:"id"`
	Email    string     `mapstructure:"email" yaml:"email"`
	Provider string     `mapstructure:"provider" yaml:"provider"`
	IMAP     IMAPConfig `mapstructure:"imap" yaml:"imap"`
}

// StyleRule maps a sender fragment to a drafting vibe.
type StyleRule struct {
	Match string `mapstructure:"match" yaml:"match"`
	Vibe  string `mapstructure:"vibe" yaml:"vibe"`
}

// RulesConfig holds the configured ignore and style rules.
type RulesConfig struct {
	IgnoreSenders []string    `mapstructure:"ignore_senders" yaml:"ignore_senders"`
	IgnoreDomains []string    `mapstructure:"ignore_domains" yaml:"ignore_domains"`
	GlobalVibe    string      `mapstructure:"global_vibe" yaml:"global_vibe"`
	Styles        []StyleRule `mapstructure:"styles" yaml:"styles"`
}

// PollConfig controls the daemon cycle interval.
type PollConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// LLMConfig holds the draft-producer provider settings.
// UseDeepAgents is the legacy v1 toggle; MigrateConfig promotes it into
// AgentConfig.Enabled and it is never read elsewhere.
type LLMConfig struct {
	Provider        string `mapstructure:"provider" yaml:"provider"`
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
	Model           string `mapstructure:"model" yaml:"model"`
	APIKeySecretKey string `mapstructure:"api_key_secret_key" yaml:"api_key_secret_key"`
	UseDeepAgents   bool   `mapstructure:"use_deep_agents" yaml:"use_deep_agents,omitempty"`
}

// AgentConfig selects which named producers draft replies, in order.
type AgentConfig struct {
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
	Producers []string `mapstructure:"producers" yaml:"producers"`
}

// SyncEngineConfig bounds the first-ever pull for an account.
type SyncEngineConfig struct {
	BootstrapMessageWindow int `mapstructure:"bootstrap_message_window" yaml:"bootstrap_message_window"`
	BootstrapThreadLimit   int `mapstructure:"bootstrap_thread_limit" yaml:"bootstrap_thread_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Version          int              `mapstructure:"version" yaml:"version"`
	DefaultAccountID string           `mapstructure:"default_account_id" yaml:"default_account_id"`
	Poll             PollConfig       `mapstructure:"poll" yaml:"poll"`
	LLM              LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Agent            AgentConfig      `mapstructure:"agent" yaml:"agent"`
	Rules            RulesConfig      `mapstructure:"rules" yaml:"rules"`
	Sync             SyncEngineConfig `mapstructure:"sync" yaml:"sync"`
	Accounts         []AccountConfig  `mapstructure:"accounts" yaml:"accounts"`
}

// DefaultConfigPath returns the default configuration file location,
// ~/.config/snd/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "snd", "config.yaml")
}

func defaultConfig() *Config {
	return &Config{
		Version: configVersion,
		Poll:    PollConfig{IntervalSec: 300},
		LLM: LLMConfig{
			Provider:        "openai-compatible",
			Model:           "gpt-4o-mini",
			APIKeySecretKey: "llm:default",
		},
		Agent: AgentConfig{
			Enabled:   true,
			Producers: []string{"openai"},
		},
		Rules: RulesConfig{
			IgnoreSenders: []string{},
			IgnoreDomains: []string{},
			GlobalVibe:    "brief, technical, direct",
			Styles:        []StyleRule{},
		},
		Sync: SyncEngineConfig{
			BootstrapMessageWindow: 200,
			BootstrapThreadLimit:   25,
		},
		Accounts: []AccountConfig{},
	}
}

// MigrateConfig upgrades an older config shape to the current version.
// The only v1 -> v2 change is the legacy llm.use_deep_agents flag: when
// no explicit agent block was present, the legacy value becomes
// agent.enabled. An explicit agent.enabled always wins. The function is
// pure; callers apply it exactly once at load time.
func MigrateConfig(cfg Config, agentBlockSet bool) Config {
	if cfg.Version >= configVersion {
		return cfg
	}

	if !agentBlockSet {
		cfg.Agent.Enabled = cfg.LLM.UseDeepAgents
	}
	cfg.Version = configVersion

	return cfg
}

// LoadConfig reads configuration from the given YAML file using Viper.
// A missing file yields the default configuration. The legacy-field
// migration is applied before the config is returned.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("version", 1)
	v.SetDefault("poll.interval_sec", 300)
	v.SetDefault("llm.provider", "openai-compatible")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key_secret_key", "llm:default")
	v.SetDefault("llm.use_deep_agents", true)
	v.SetDefault("agent.enabled", true)
	v.SetDefault("agent.producers", []string{"openai"})
	v.SetDefault("rules.global_vibe", "brief, technical, direct")
	v.SetDefault("sync.bootstrap_message_window", 200)
	v.SetDefault("sync.bootstrap_thread_limit", 25)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	migrated := MigrateConfig(*cfg, v.InConfig("agent"))
	return &migrated, nil
}

// SaveConfig writes the configuration as YAML at path, creating parent
// directories if needed.
func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("version", cfg.Version)
	v.Set("default_account_id", cfg.DefaultAccountID)
	v.Set("poll", cfg.Poll)
	v.Set("llm", cfg.LLM)
	v.Set("agent", cfg.Agent)
	v.Set("rules", cfg.Rules)
	v.Set("sync", cfg.Sync)
	v.Set("accounts", cfg.Accounts)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
