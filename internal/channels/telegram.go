package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/doclantern/doclantern/internal/bus"
	"github.com/doclantern/doclantern/internal/config"
)

// telegramMaxLen keeps chunks under Telegram's 4096-character limit with
// headroom for the HTML markup added during formatting.
const telegramMaxLen = 4000

// telegramHardLen is the limit Telegram enforces per message.
const telegramHardLen = 4096

// typingRefresh re-sends the typing action before Telegram's ~5s expiry.
const typingRefresh = 4 * time.Second

// typingMaxAge bounds a typing loop whose reply never arrives.
const typingMaxAge = 3 * time.Minute

// TelegramChannel implements the Telegram bot via long polling.
type TelegramChannel struct {
	Base
	cfg *config.TelegramConfig
	bot *tgbotapi.BotAPI

	typingMu sync.Mutex
	typing   map[int64]context.CancelFunc
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(cfg *config.TelegramConfig, b bus.Bus) *TelegramChannel {
	return &TelegramChannel{
		Base:   NewBase(bus.ChannelTelegram, b, cfg.AllowFrom),
		cfg:    cfg,
		typing: make(map[int64]context.CancelFunc),
	}
}

func (t *TelegramChannel) Name() string { return string(bus.ChannelTelegram) }

func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPI(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("telegram: connected", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(ctx, update)
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (t *TelegramChannel) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	senderID := fmt.Sprintf("%d", msg.From.ID)
	if msg.From.UserName != "" {
		senderID = senderID + "|" + msg.From.UserName
	}
	chatID := fmt.Sprintf("%d", msg.Chat.ID)

	// Keep the typing indicator alive until Send delivers the reply.
	t.startTyping(ctx, msg.Chat.ID)

	metadata := map[string]any{
		"message_id": msg.MessageID,
		"user_id":    msg.From.ID,
		"username":   msg.From.UserName,
		"is_group":   msg.Chat.Type != "private",
	}

	t.HandleMessage(senderID, chatID, msg.Text, metadata)
}

// startTyping launches a typing loop for chatID, replacing any loop already
// running for that chat. The loop lives until stopTyping, typingMaxAge, or
// ctx cancellation.
func (t *TelegramChannel) startTyping(ctx context.Context, chatID int64) {
	typingCtx, cancel := context.WithTimeout(ctx, typingMaxAge)

	t.typingMu.Lock()
	if prev, ok := t.typing[chatID]; ok {
		prev()
	}
	t.typing[chatID] = cancel
	t.typingMu.Unlock()

	go t.sendTypingLoop(typingCtx, chatID)
}

// stopTyping ends the typing loop for chatID, if one is running.
func (t *TelegramChannel) stopTyping(chatID int64) {
	t.typingMu.Lock()
	if cancel, ok := t.typing[chatID]; ok {
		cancel()
		delete(t.typing, chatID)
	}
	t.typingMu.Unlock()
}

func (t *TelegramChannel) typingActive(chatID int64) bool {
	t.typingMu.Lock()
	defer t.typingMu.Unlock()
	_, ok := t.typing[chatID]
	return ok
}

func (t *TelegramChannel) sendTypingLoop(ctx context.Context, chatID int64) {
	for {
		if t.bot != nil {
			action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
			_, _ = t.bot.Request(action)
		}
		select {
		case <-time.After(typingRefresh):
		case <-ctx.Done():
			return
		}
	}
}

func (t *TelegramChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	chatID, err := parseChatID(msg.ChatId())
	if err != nil {
		return err
	}
	t.stopTyping(chatID)
	if t.bot == nil {
		return fmt.Errorf("telegram: bot not running")
	}
	if msg.Content() == "" {
		return nil
	}

	var replyMsgID int
	if t.cfg.ReplyToMessage {
		if mid, ok := msg.Metadata()["message_id"]; ok {
			switch v := mid.(type) {
			case int:
				replyMsgID = v
			case float64:
				replyMsgID = int(v)
			}
		}
	}

	for _, chunk := range renderTelegramChunks(msg.Content(), telegramMaxLen) {
		m := tgbotapi.NewMessage(chatID, chunk.html)
		m.ParseMode = "HTML"
		if replyMsgID != 0 {
			m.ReplyToMessageID = replyMsgID
		}
		if _, err := t.bot.Send(m); err != nil {
			// Fallback to plain text when the markup doesn't parse.
			m2 := tgbotapi.NewMessage(chatID, chunk.plain)
			if replyMsgID != 0 {
				m2.ReplyToMessageID = replyMsgID
			}
			if _, err := t.bot.Send(m2); err != nil {
				return fmt.Errorf("telegram: send: %w", err)
			}
		}
	}
	return nil
}

// renderedChunk pairs the HTML markup with the plain text it was built from,
// so the send fallback matches the chunk exactly.
type renderedChunk struct {
	html  string
	plain string
}

// renderTelegramChunks splits content and converts each chunk to Telegram
// HTML. Escaping can inflate a chunk past the hard per-message limit, so an
// oversized conversion re-splits its source at half the budget until the
// markup fits.
func renderTelegramChunks(content string, budget int) []renderedChunk {
	var out []renderedChunk
	for _, chunk := range splitMessage(content, budget) {
		html := markdownToTelegramHTML(chunk)
		if len(html) > telegramHardLen && budget > 256 {
			out = append(out, renderTelegramChunks(chunk, budget/2)...)
			continue
		}
		out = append(out, renderedChunk{html: html, plain: chunk})
	}
	return out
}

func parseChatID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid chat_id: %s", s)
	}
	return id, nil
}
