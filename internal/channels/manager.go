package channels

import (
	"context"
	"log/slog"

	"github.com/doclantern/doclantern/internal/bus"
	"github.com/doclantern/doclantern/internal/config"
	"github.com/doclantern/doclantern/internal/retry"
	"github.com/doclantern/doclantern/internal/schema"
)

// Manager owns all enabled channels and routes outbound messages.
type Manager struct {
	channels map[string]schema.Channel
	b        bus.Bus
	delivery retry.Policy
}

// NewManager creates a Manager and initialises all enabled channels.
// The CLI channel is registered only when interactive is set, so a headless
// gateway doesn't block reading stdin.
func NewManager(cfg *config.Config, b bus.Bus, interactive bool) *Manager {
	m := &Manager{
		channels: make(map[string]schema.Channel),
		b:        b,
		delivery: retry.DefaultDeliveryPolicy(),
	}

	if interactive {
		cli := NewCLIChannel(b)
		m.channels[cli.Name()] = cli
		slog.Info("channel enabled", "name", cli.Name())
	}
	if cfg.Channels.Telegram.Enabled {
		ch := NewTelegramChannel(&cfg.Channels.Telegram, b)
		m.channels[ch.Name()] = ch
		slog.Info("channel enabled", "name", ch.Name())
	}
	if cfg.Channels.Slack.Enabled {
		ch := NewSlackChannel(&cfg.Channels.Slack, b)
		m.channels[ch.Name()] = ch
		slog.Info("channel enabled", "name", ch.Name())
	}

	return m
}

// EnabledChannels returns the names of all enabled channels.
func (m *Manager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for n := range m.channels {
		names = append(names, n)
	}
	return names
}

// StartAll starts all channels concurrently and dispatches outbound messages.
// Blocks until ctx is cancelled.
func (m *Manager) StartAll(ctx context.Context) error {
	go m.dispatchOutbound(ctx)

	for name, ch := range m.channels {
		go func(n string, c schema.Channel) {
			slog.Info("starting channel", "name", n)
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("channel exited with error", "name", n, "err", err)
			}
		}(name, ch)
	}

	<-ctx.Done()
	return ctx.Err()
}

// dispatchOutbound reads from the outbound bus and routes each message to the
// owning channel's Send, retrying transient failures. A message that still
// fails after the retry budget is logged and dropped, never re-queued.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-m.b.OutboundChan():
			ch, ok := m.channels[msg.Channel()]
			if !ok {
				slog.Debug("unknown channel for outbound message", "channel", msg.Channel())
				continue
			}
			err := m.delivery.Do(ctx, "deliver:"+msg.Channel(), func(ctx context.Context) error {
				return ch.Send(ctx, msg)
			}, nil)
			if err != nil {
				slog.Error("delivery failed, dropping message",
					"channel", msg.Channel(), "chat", msg.ChatId(), "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
