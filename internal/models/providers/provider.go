package providers

import (
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles used by vendor chat APIs
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FromMessageContent flattens langchaingo messages into role/text pairs.
// Non-text parts are dropped.
func FromMessageContent(messages []llms.MessageContent) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		var text strings.Builder
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				text.WriteString(tc.Text)
			}
		}

		role := RoleUser
		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			role = RoleSystem
		case llms.ChatMessageTypeAI:
			role = RoleAssistant
		}

		out = append(out, Message{Role: role, Content: text.String()})
	}
	return out
}

// resolveCallOptions applies langchaingo call options
func resolveCallOptions(options []llms.CallOption) llms.CallOptions {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}
