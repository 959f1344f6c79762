// Package dependency wires core doclantern services using go.uber.org/dig.
package dependency

import (
	"fmt"
	"path/filepath"

	"go.uber.org/dig"

	"github.com/doclantern/doclantern/internal/bus"
	"github.com/doclantern/doclantern/internal/cache"
	"github.com/doclantern/doclantern/internal/config"
	"github.com/doclantern/doclantern/internal/docs"
	"github.com/doclantern/doclantern/internal/health"
	"github.com/doclantern/doclantern/internal/orchestrator"
	"github.com/doclantern/doclantern/internal/providers"
	"github.com/doclantern/doclantern/internal/retry"
	"github.com/doclantern/doclantern/internal/schema"
	"github.com/doclantern/doclantern/internal/session"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	provider schema.LLMProvider
	msgBus   bus.Bus
	docs     *docs.Client
	cache    *cache.ResolveCache
	sessions *session.Store
	orch     *orchestrator.Orchestrator
	probe    *health.Probe
}

func (c *Container) Provider() schema.LLMProvider          { return c.provider }
func (c *Container) MessageBus() bus.Bus                   { return c.msgBus }
func (c *Container) DocsClient() *docs.Client              { return c.docs }
func (c *Container) ResolveCache() *cache.ResolveCache     { return c.cache }
func (c *Container) Sessions() *session.Store              { return c.sessions }
func (c *Container) Orchestrator() *orchestrator.Orchestrator { return c.orch }
func (c *Container) Probe() *health.Probe                  { return c.probe }

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	for _, ctor := range []any{
		newProvider,
		newMessageBus,
		newDocsClient,
		newResolveCache,
		newSessionStore,
		newSystemPrompt,
		newSettings,
		newOrchestrator,
		newProbe,
	} {
		if err := d.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		provider schema.LLMProvider,
		msgBus bus.Bus,
		dc *docs.Client,
		rc *cache.ResolveCache,
		sessions *session.Store,
		orch *orchestrator.Orchestrator,
		probe *health.Probe,
	) {
		result = &Container{
			provider: provider,
			msgBus:   msgBus,
			docs:     dc,
			cache:    rc,
			sessions: sessions,
			orch:     orch,
			probe:    probe,
		}
	})
	return result, err
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	model := cfg.Agents.Defaults.Model
	p := cfg.MatchProvider(model)
	if p == nil {
		return nil, fmt.Errorf("no API key configured for model %q — edit %s", model, config.ConfigPath())
	}
	return providers.NewOpenAIProvider(p.APIKey, p.APIBase, model, p.ExtraHeaders), nil
}

func newMessageBus() bus.Bus {
	return bus.NewMessageBus(100)
}

func newDocsClient(cfg *config.Config) *docs.Client {
	return docs.NewClient(docs.Config{
		Command:     cfg.Docs.Command,
		Args:        cfg.Docs.Args,
		Env:         cfg.Docs.Env,
		URL:         cfg.Docs.URL,
		Headers:     cfg.Docs.Headers,
		CallTimeout: cfg.Docs.CallTimeout(),
		Retry: retry.Policy{
			MaxAttempts: cfg.Docs.RetryAttempts,
			BaseDelay:   cfg.Docs.RetryBaseDelay(),
		},
	})
}

func newResolveCache(cfg *config.Config) (*cache.ResolveCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	path := cfg.Cache.Path
	if path == "" {
		path = filepath.Join(config.DataDir(), "resolve-cache.db")
	}
	return cache.New(path, cfg.Cache.TTL(), cfg.Cache.MaxEntries)
}

func newSessionStore(cfg *config.Config) *session.Store {
	return session.NewStore(cfg.Sessions.IdleTimeout())
}

func newSystemPrompt() (*orchestrator.SystemPrompt, error) {
	return orchestrator.LoadSystemPrompt(config.PromptPath())
}

func newSettings(cfg *config.Config) schema.Settings {
	return schema.NewSettings(
		cfg.Agents.Defaults.Model,
		cfg.Agents.Defaults.MaxTokens,
		cfg.Agents.Defaults.Temperature,
		cfg.Agents.Defaults.MemoryWindow,
	)
}

func newOrchestrator(
	b bus.Bus,
	p schema.LLMProvider,
	dc *docs.Client,
	rc *cache.ResolveCache,
	sessions *session.Store,
	prompt *orchestrator.SystemPrompt,
	settings schema.Settings,
) *orchestrator.Orchestrator {
	return orchestrator.New(b, p, dc, rc, sessions, prompt, settings)
}

func newProbe(cfg *config.Config, dc *docs.Client) *health.Probe {
	return health.NewProbe(dc.Ping, cfg.Health.Interval(), cfg.Health.FailureThreshold)
}
