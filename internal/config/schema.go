// Package config defines the configuration schema for doclantern.
//
// Config is loaded from ~/.doclantern/config.json; a handful of secrets can
// also come from the environment so deployments never write keys to disk.
package config

import (
	"strings"
	"time"
)

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
}

// ProvidersConfig holds credentials for the supported LLM providers.
type ProvidersConfig struct {
	OpenRouter ProviderConfig `json:"openrouter"`
	OpenAI     ProviderConfig `json:"openai"`
	Custom     ProviderConfig `json:"custom"`
}

// AgentDefaults holds default values for answer generation.
type AgentDefaults struct {
	Model        string  `json:"model"`
	MaxTokens    int     `json:"maxTokens"`
	Temperature  float64 `json:"temperature"`
	MemoryWindow int     `json:"memoryWindow"`
}

func defaultAgentDefaults() AgentDefaults {
	return AgentDefaults{
		Model:        "openai/gpt-4o-mini",
		MaxTokens:    4096,
		Temperature:  0.3,
		MemoryWindow: 20,
	}
}

// AgentsConfig wraps the answer-generation defaults.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

// ---- Channel configs -------------------------------------------------------

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled        bool     `json:"enabled"`
	Token          string   `json:"token"`
	AllowFrom      []string `json:"allowFrom"`
	ReplyToMessage bool     `json:"replyToMessage"`
}

func defaultTelegramConfig() TelegramConfig {
	return TelegramConfig{AllowFrom: []string{}}
}

// SlackConfig configures the Slack channel (socket mode).
type SlackConfig struct {
	Enabled   bool     `json:"enabled"`
	BotToken  string   `json:"botToken"`
	AppToken  string   `json:"appToken"`
	AllowFrom []string `json:"allowFrom"`
}

func defaultSlackConfig() SlackConfig {
	return SlackConfig{AllowFrom: []string{}}
}

// ChannelsConfig groups all channel configurations.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
}

func defaultChannelsConfig() ChannelsConfig {
	return ChannelsConfig{
		Telegram: defaultTelegramConfig(),
		Slack:    defaultSlackConfig(),
	}
}

// ---- Documentation backend -------------------------------------------------

// DocsBackendConfig describes the documentation tool server connection,
// either a stdio subprocess (Command) or a streamable HTTP endpoint (URL).
type DocsBackendConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`

	CallTimeoutSeconds int `json:"callTimeoutSeconds"`
	RetryAttempts      int `json:"retryAttempts"`
	RetryBaseDelayMs   int `json:"retryBaseDelayMs"`
}

func defaultDocsBackendConfig() DocsBackendConfig {
	return DocsBackendConfig{
		Command:            "npx",
		Args:               []string{"-y", "@upstash/context7-mcp"},
		Env:                map[string]string{},
		Headers:            map[string]string{},
		CallTimeoutSeconds: 30,
	}
}

// CallTimeout returns the per-call timeout as a duration.
func (d DocsBackendConfig) CallTimeout() time.Duration {
	if d.CallTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.CallTimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the backoff base as a duration (0 = library default).
func (d DocsBackendConfig) RetryBaseDelay() time.Duration {
	return time.Duration(d.RetryBaseDelayMs) * time.Millisecond
}

// ---- Cache, health, sessions -----------------------------------------------

// CacheConfig controls the resolve-result cache.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	TTLHours   int    `json:"ttlHours"`
	MaxEntries int    `json:"maxEntries"`
}

func defaultCacheConfig() CacheConfig {
	return CacheConfig{Enabled: true, TTLHours: 24, MaxEntries: 512}
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// HealthConfig configures the health endpoint and backend probing.
type HealthConfig struct {
	Host             string `json:"host"`
	Port             int    `json:"port"`
	Path             string `json:"path"`
	IntervalSeconds  int    `json:"intervalSeconds"`
	FailureThreshold int    `json:"failureThreshold"`
}

func defaultHealthConfig() HealthConfig {
	return HealthConfig{
		Host:             "0.0.0.0",
		Port:             8080,
		Path:             "/health",
		IntervalSeconds:  30,
		FailureThreshold: 3,
	}
}

// Interval returns the probe period as a duration.
func (h HealthConfig) Interval() time.Duration {
	if h.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.IntervalSeconds) * time.Second
}

// SessionsConfig controls conversation lifetime.
type SessionsConfig struct {
	IdleTimeoutMinutes int `json:"idleTimeoutMinutes"`
}

func defaultSessionsConfig() SessionsConfig {
	return SessionsConfig{IdleTimeoutMinutes: 30}
}

// IdleTimeout returns the inactivity eviction threshold as a duration.
func (s SessionsConfig) IdleTimeout() time.Duration {
	if s.IdleTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.IdleTimeoutMinutes) * time.Minute
}

// ---- Root config -----------------------------------------------------------

// Config is the root configuration object, loaded from ~/.doclantern/config.json.
type Config struct {
	Agents    AgentsConfig      `json:"agents"`
	Providers ProvidersConfig   `json:"providers"`
	Channels  ChannelsConfig    `json:"channels"`
	Docs      DocsBackendConfig `json:"docs"`
	Cache     CacheConfig       `json:"cache"`
	Health    HealthConfig      `json:"health"`
	Sessions  SessionsConfig    `json:"sessions"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agents:    AgentsConfig{Defaults: defaultAgentDefaults()},
		Providers: ProvidersConfig{},
		Channels:  defaultChannelsConfig(),
		Docs:      defaultDocsBackendConfig(),
		Cache:     defaultCacheConfig(),
		Health:    defaultHealthConfig(),
		Sessions:  defaultSessionsConfig(),
	}
}

// MatchProvider resolves which provider credentials to use for model.
// An explicit "openai/..." prefix picks OpenAI; otherwise the first provider
// with an API key wins, OpenRouter first since it fronts every model.
func (c *Config) MatchProvider(model string) *ProviderConfig {
	if model == "" {
		model = c.Agents.Defaults.Model
	}
	prefix, _, _ := strings.Cut(strings.ToLower(model), "/")

	switch prefix {
	case "openrouter":
		if c.Providers.OpenRouter.APIKey != "" {
			return &c.Providers.OpenRouter
		}
	case "openai":
		if c.Providers.OpenAI.APIKey != "" {
			return &c.Providers.OpenAI
		}
	case "custom":
		if c.Providers.Custom.APIKey != "" || c.Providers.Custom.APIBase != "" {
			return &c.Providers.Custom
		}
	}

	for _, p := range []*ProviderConfig{&c.Providers.OpenRouter, &c.Providers.OpenAI, &c.Providers.Custom} {
		if p.APIKey != "" || p.APIBase != "" {
			return p
		}
	}
	return nil
}
