package channels

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/doclantern/doclantern/internal/bus"
	"github.com/doclantern/doclantern/internal/config"
)

func newTestTelegram() *TelegramChannel {
	cfg := config.TelegramConfig{Enabled: true}
	return NewTelegramChannel(&cfg, bus.NewMessageBus(4))
}

func TestTypingRunsUntilReplyDelivered(t *testing.T) {
	tg := newTestTelegram()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tg.startTyping(ctx, 42)
	if !tg.typingActive(42) {
		t.Fatal("typing loop not registered")
	}

	// The inbound handler returns long before the orchestrator replies; the
	// loop must survive that gap.
	time.Sleep(50 * time.Millisecond)
	if !tg.typingActive(42) {
		t.Fatal("typing loop stopped before the reply was delivered")
	}

	// Send stops the indicator even when delivery itself fails.
	reply := bus.NewOutboundMessage("telegram", "42", "answer")
	_ = tg.Send(context.Background(), reply)
	if tg.typingActive(42) {
		t.Error("typing loop still registered after Send")
	}
}

func TestTypingReplacedByNewerRequestSameChat(t *testing.T) {
	tg := newTestTelegram()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tg.startTyping(ctx, 42)
	tg.startTyping(ctx, 42)
	if !tg.typingActive(42) {
		t.Fatal("typing loop not registered after restart")
	}

	tg.stopTyping(42)
	if tg.typingActive(42) {
		t.Error("typing loop still registered after stop")
	}
}

func TestRenderTelegramChunksStayUnderHardLimit(t *testing.T) {
	// Escaping triples every character here (& -> &amp;), which would push a
	// naive pre-escape split far past the per-message limit.
	content := strings.Repeat("&&&&&&&&& ", 390)

	chunks := renderTelegramChunks(content, telegramMaxLen)
	if len(chunks) < 2 {
		t.Fatalf("expected escaped content to split, got %d chunk(s)", len(chunks))
	}
	for i, c := range chunks {
		if len(c.html) > telegramHardLen {
			t.Errorf("chunk %d markup is %d chars, over the %d limit", i, len(c.html), telegramHardLen)
		}
		if len(c.plain) > telegramMaxLen {
			t.Errorf("chunk %d plain text is %d chars, over the %d budget", i, len(c.plain), telegramMaxLen)
		}
	}

	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c.plain)
		rebuilt.WriteString(" ")
	}
	for _, word := range strings.Fields(content) {
		if !strings.Contains(rebuilt.String(), word) {
			t.Fatalf("word %q lost in re-split", word)
		}
	}
}

func TestRenderTelegramChunksShortContent(t *testing.T) {
	chunks := renderTelegramChunks("use `requests.post` for that", telegramMaxLen)
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].html, "<code>") {
		t.Errorf("inline code not converted: %q", chunks[0].html)
	}
	if chunks[0].plain != "use `requests.post` for that" {
		t.Errorf("plain fallback altered: %q", chunks[0].plain)
	}
}
