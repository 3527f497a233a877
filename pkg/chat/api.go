// Package chat defines the completion-service abstraction: message and
// request types shared by the conversation layer and the provider clients,
// plus the middleware chain that wraps a client with cross-cutting behavior.
package chat

import "context"

// Role identifies the author of a message.
type Role string

const (
	// RoleSystem indicates a message that provides instructions or context.
	RoleSystem Role = "system"
	// RoleUser indicates a message from the human user.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant Role = "assistant"
)

const (
	// DefaultMaxTokens is the default output budget for a completion.
	DefaultMaxTokens = 4096

	// TemperatureDefault balances focus with some variation in replies.
	TemperatureDefault = 0.7
)

// Message is one conversation entry. The JSON form is the persisted
// representation, so the field set and key names are load-bearing.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a request to generate one completion from a message sequence.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Usage reports token counts for a completed request. Zero values mean
// the provider did not report them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is the reply to a completion request.
type Response struct {
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", etc.
	Usage      Usage
}

// Client is a connection to one chat-completion service. A Complete call
// produces exactly one reply for the given message sequence.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in Request) (Response, error)

	// ModelName returns the model this client talks to.
	ModelName() string
}

// NewRequest creates a completion request with default limits.
func NewRequest(messages []Message) Request {
	return Request{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{
		Role:    RoleAssistant,
		Content: content,
	}
}
