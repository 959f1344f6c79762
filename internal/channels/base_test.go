package channels

import (
	"strings"
	"testing"

	"github.com/doclantern/doclantern/internal/bus"
)

func TestSplitMessage_ShortPassesThrough(t *testing.T) {
	chunks := splitMessage("hello", 100)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestSplitMessage_PrefersNewlineBreaks(t *testing.T) {
	content := strings.Repeat("0123456789\n", 30)
	chunks := splitMessage(content, 100)

	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d exceeds limit: %d chars", i, len(c))
		}
		if strings.Contains(c, "01234567890") {
			t.Errorf("chunk %d cut mid-line: %q", i, c)
		}
	}
}

func TestSplitMessage_NoContentLost(t *testing.T) {
	content := strings.Repeat("lorem ipsum dolor sit amet ", 50)
	chunks := splitMessage(content, 120)

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c)
		joined.WriteString(" ")
	}
	want := strings.Fields(content)
	got := strings.Fields(joined.String())
	if len(want) != len(got) {
		t.Fatalf("word count changed: %d -> %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("word %d changed: %q -> %q", i, want[i], got[i])
		}
	}
}

func TestSplitMessage_HardCutWithoutBreaks(t *testing.T) {
	content := strings.Repeat("x", 250)
	chunks := splitMessage(content, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk exceeds limit: %d", len(c))
		}
	}
}

func TestIsAllowed(t *testing.T) {
	b := NewBase(bus.ChannelTelegram, bus.NewMessageBus(1), []string{"42", "alice"})

	if !b.IsAllowed("42") {
		t.Error("listed id must be allowed")
	}
	if !b.IsAllowed("99|alice") {
		t.Error("id|username with listed username must be allowed")
	}
	if b.IsAllowed("99|bob") {
		t.Error("unlisted sender must be rejected")
	}

	open := NewBase(bus.ChannelTelegram, bus.NewMessageBus(1), nil)
	if !open.IsAllowed("anyone") {
		t.Error("empty allowlist means open access")
	}
}

func TestHandleMessage_PublishesToBus(t *testing.T) {
	mb := bus.NewMessageBus(1)
	b := NewBase(bus.ChannelTelegram, mb, nil)

	b.HandleMessage("42", "chat-1", "hello", map[string]any{"message_id": 7})

	select {
	case msg := <-mb.InboundChan():
		if msg.Channel() != "telegram" || msg.ChatId() != "chat-1" || msg.Content() != "hello" {
			t.Errorf("message = %+v", msg)
		}
		if msg.SessionKey() != "telegram:chat-1" {
			t.Errorf("session key = %q", msg.SessionKey())
		}
	default:
		t.Fatal("nothing published to the bus")
	}
}

func TestHandleMessage_RejectedSenderPublishesNothing(t *testing.T) {
	mb := bus.NewMessageBus(1)
	b := NewBase(bus.ChannelTelegram, mb, []string{"42"})

	b.HandleMessage("99", "chat-1", "hello", nil)

	select {
	case <-mb.InboundChan():
		t.Fatal("rejected sender's message reached the bus")
	default:
	}
}
