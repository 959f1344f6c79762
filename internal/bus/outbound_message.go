package bus

// OutboundMessage is a response to be sent back through a channel.
type OutboundMessage struct {
	channel  string         // destination channel name
	chatId   string         // destination chat / channel / DM identifier
	content  string         // text to send
	metadata map[string]any // channel-specific hints (message_id, thread_ts, …)
}

func NewOutboundMessage(channel, chatId, content string) OutboundMessage {
	return OutboundMessage{
		channel: channel,
		chatId:  chatId,
		content: content,
	}
}

func (m OutboundMessage) Channel() string                { return m.channel }
func (m OutboundMessage) ChatId() string                 { return m.chatId }
func (m OutboundMessage) Content() string                { return m.content }
func (m OutboundMessage) Metadata() map[string]any       { return m.metadata }
func (m *OutboundMessage) SetMetadata(md map[string]any) { m.metadata = md }
