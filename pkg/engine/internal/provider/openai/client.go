// Package openai implements the chat.Client interface for OpenAI models.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"parley/pkg/chat"
	"parley/pkg/chat/chaterrors"
)

// Client wraps the OpenAI API client.
type Client struct {
	api   openai.Client
	model openai.ChatModel
}

// New creates an OpenAI client for the given model.
func New(apiKey, model string) *Client {
	return &Client{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: openai.ChatModel(model),
	}
}

// toParam converts a message to the chat completions union type. Unknown
// roles are sent as user messages rather than rejected.
func toParam(msg chat.Message) openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case chat.RoleSystem:
		return openai.SystemMessage(msg.Content)
	case chat.RoleAssistant:
		return openai.AssistantMessage(msg.Content)
	default:
		return openai.UserMessage(msg.Content)
	}
}

// Complete implements chat.Client.
func (c *Client) Complete(ctx context.Context, in chat.Request) (chat.Response, error) {
	if len(in.Messages) == 0 {
		return chat.Response{}, chaterrors.NewError(chaterrors.ErrorTypeBadRequest,
			"message list cannot be empty")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for _, msg := range in.Messages {
		messages = append(messages, toParam(msg))
	}

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   openai.Int(int64(in.MaxTokens)),
		Temperature: openai.Float(float64(in.Temperature)),
	}

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return chat.Response{}, classifyError(err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return chat.Response{}, chaterrors.NewError(chaterrors.ErrorTypeInternal,
			"received empty response from the chat completions API")
	}

	choice := completion.Choices[0]
	return chat.Response{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: chat.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}

// ModelName implements chat.Client.
func (c *Client) ModelName() string {
	return string(c.model)
}

// classifyError maps SDK errors to the structured error types. The SDK
// exposes HTTP failures as *openai.Error with a status code; anything
// else is classified from the message text.
func classifyError(err error) *chaterrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request canceled")
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeAuth, err,
				"authentication failed - check the API key")
		case 429:
			return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeRateLimit, err, "rate limit exceeded")
		case 400, 404, 422:
			return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeBadRequest, err, "request rejected")
		case 500, 502, 503, 504:
			return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeInternal, err, "service error")
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request timed out")
	case strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"),
		strings.Contains(err.Error(), "EOF"),
		strings.Contains(lower, "reset"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeNetwork, err, "network error")
	case strings.Contains(lower, "rate"), strings.Contains(lower, "quota"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "api key"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeAuth, err, "authentication error")
	}

	return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeUnknown, err, "completion failed")
}
