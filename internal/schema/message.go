// Package schema contains the core contracts shared across doclantern packages.
// Concrete implementations live in their respective packages; this package is the
// single canonical source of truth for the shared types.
package schema

// Message is one entry in a conversation.
//
// Role is one of: "system", "user", "assistant".
type Message struct {
	Role    string
	Content string
}

func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
