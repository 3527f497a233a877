// Package ollama implements the chat.Client interface for models served
// by a local Ollama runtime.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"parley/pkg/chat"
	"parley/pkg/chat/chaterrors"
)

// DefaultHost is the Ollama server address used when none is configured.
const DefaultHost = "http://localhost:11434"

// Client wraps the Ollama API client.
type Client struct {
	api   *api.Client
	model string
	host  string
}

// New creates a client for the Ollama server at host. An empty or
// unparseable host falls back to DefaultHost.
func New(host, model string) *Client {
	if host == "" {
		host = DefaultHost
	}
	parsed, err := url.Parse(host)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		parsed, _ = url.Parse(DefaultHost)
	}

	return &Client{
		api:   api.NewClient(parsed, http.DefaultClient),
		model: model,
		host:  parsed.String(),
	}
}

// Host returns the server address the client talks to.
func (c *Client) Host() string {
	return c.host
}

// toMessages converts a message sequence to the Ollama chat format, which
// shares our role vocabulary directly.
func toMessages(messages []chat.Message) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	result := make([]api.Message, 0, len(messages))
	for i := range messages {
		result = append(result, api.Message{
			Role:    string(messages[i].Role),
			Content: messages[i].Content,
		})
	}
	return result, nil
}

// Complete implements chat.Client.
func (c *Client) Complete(ctx context.Context, in chat.Request) (chat.Response, error) {
	messages, err := toMessages(in.Messages)
	if err != nil {
		return chat.Response{}, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeBadRequest, err,
			fmt.Sprintf("cannot shape request for the Ollama API: %v", err))
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	// With streaming off the callback fires once with the full response.
	var last api.ChatResponse
	err = c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		return chat.Response{}, classifyError(err)
	}

	return chat.Response{
		Content:    last.Message.Content,
		StopReason: stopReason(&last),
		Usage: chat.Usage{
			PromptTokens:     last.PromptEvalCount,
			CompletionTokens: last.EvalCount,
		},
	}, nil
}

// ModelName implements chat.Client.
func (c *Client) ModelName() string {
	return c.model
}

// stopReason converts Ollama's done_reason to the shared vocabulary.
func stopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}
	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

// classifyError maps Ollama errors to the structured error types. A
// refused connection is the common case (server not running), so it gets
// a pointed message.
func classifyError(err error) *chaterrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request canceled")
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeNetwork, err,
			"Ollama server not reachable - is it running?")
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeBadRequest, err,
			fmt.Sprintf("model not available locally: %v", err))
	case strings.Contains(errStr, "timeout"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request timed out")
	}

	return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeUnknown, err, "completion failed")
}
