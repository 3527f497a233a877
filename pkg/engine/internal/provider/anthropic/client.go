// Package anthropic implements the chat.Client interface for Claude models.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"parley/pkg/chat"
	"parley/pkg/chat/chaterrors"
)

// Client wraps the Anthropic API client.
type Client struct {
	api   anthropic.Client
	model anthropic.Model
}

// New creates a Claude client for the given model.
func New(apiKey, model string) *Client {
	return &Client{
		api:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: anthropic.Model(model),
	}
}

// prepareMessages reshapes an arbitrary message sequence into what the
// Messages API accepts:
//  1. system messages move to the top-level system parameter
//  2. consecutive non-assistant messages merge into single user messages
//     (the context window legitimately repeats user entries)
//  3. leading assistant messages are dropped - the API requires the first
//     message to be from the user
//
// A sequence ending with an assistant message is left alone; the API
// treats it as a prefill to continue from.
func prepareMessages(messages []chat.Message) (systemPrompt string, merged []chat.Message, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var rest []chat.Message
	for _, msg := range messages {
		if msg.Role == chat.RoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}
	systemPrompt = strings.Join(systemParts, "\n\n")

	if len(rest) == 0 {
		return "", nil, fmt.Errorf("need at least one non-system message")
	}

	var userParts []string
	for _, msg := range rest {
		if msg.Role == chat.RoleAssistant {
			if len(userParts) > 0 {
				merged = append(merged, chat.NewUserMessage(strings.Join(userParts, "\n\n")))
				userParts = nil
			}
			merged = append(merged, msg)
		} else {
			userParts = append(userParts, msg.Content)
		}
	}
	if len(userParts) > 0 {
		merged = append(merged, chat.NewUserMessage(strings.Join(userParts, "\n\n")))
	}

	for len(merged) > 0 && merged[0].Role == chat.RoleAssistant {
		merged = merged[1:]
	}
	if len(merged) == 0 {
		return "", nil, fmt.Errorf("no user message to anchor the request")
	}

	return systemPrompt, merged, nil
}

// Complete implements chat.Client.
func (c *Client) Complete(ctx context.Context, in chat.Request) (chat.Response, error) {
	systemPrompt, merged, err := prepareMessages(in.Messages)
	if err != nil {
		return chat.Response{}, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeBadRequest, err,
			fmt.Sprintf("cannot shape request for the messages API: %v", err))
	}

	messages := make([]anthropic.MessageParam, 0, len(merged))
	for _, msg := range merged {
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return chat.Response{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return chat.Response{}, chaterrors.NewError(chaterrors.ErrorTypeInternal,
			"received empty response from the messages API")
	}

	var text strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return chat.Response{
		Content:    text.String(),
		StopReason: string(resp.StopReason),
		Usage: chat.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// ModelName implements chat.Client.
func (c *Client) ModelName() string {
	return string(c.model)
}

// classifyError maps SDK errors to the structured error types. The SDK
// reports HTTP failures as formatted strings, so classification parses
// the message.
func classifyError(err error) *chaterrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request canceled")
	}

	errStr := err.Error()
	switch extractStatusCode(errStr) {
	case 401, 403:
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeAuth, err,
			"authentication failed - check the API key")
	case 429:
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeRateLimit, err, "rate limit exceeded")
	case 400:
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeBadRequest, err, "request rejected")
	case 500, 502, 503, 504:
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeInternal, err, "service error")
	}

	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "timeout"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request timed out")
	case strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"),
		strings.Contains(errStr, "EOF"),
		strings.Contains(lower, "reset"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeNetwork, err, "network error")
	case strings.Contains(lower, "rate"), strings.Contains(lower, "quota"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "api key"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeAuth, err, "authentication error")
	}

	return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeUnknown, err, "completion failed")
}

// extractStatusCode pulls an HTTP status code out of an SDK error string.
func extractStatusCode(errStr string) int {
	patterns := []string{"status code: ", "status: ", "http "}
	lower := strings.ToLower(errStr)

	for _, pattern := range patterns {
		idx := strings.Index(lower, pattern)
		if idx == -1 {
			continue
		}
		start := idx + len(pattern)
		if start+3 > len(errStr) {
			continue
		}
		switch lower[start : start+3] {
		case "400":
			return 400
		case "401":
			return 401
		case "403":
			return 403
		case "429":
			return 429
		case "500":
			return 500
		case "502":
			return 502
		case "503":
			return 503
		case "504":
			return 504
		}
	}
	return 0
}
