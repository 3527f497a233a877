// Package google implements the chat.Client interface for Gemini models.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"parley/pkg/chat"
	"parley/pkg/chat/chaterrors"
)

// Client wraps the GenAI SDK client. SDK construction needs a context,
// so it is deferred to the first Complete call.
type Client struct {
	api    *genai.Client
	apiKey string
	model  string
}

// New creates a Gemini client for the given model.
func New(apiKey, model string) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
	}
}

// toContents converts a message sequence to the GenAI content format.
// System messages become the system instruction (joined when repeated);
// assistant messages take the "model" role. Empty-bodied messages are
// dropped since the API rejects empty parts.
func toContents(messages []chat.Message) (contents []*genai.Content, system string, err error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	for i := range messages {
		msg := &messages[i]

		if msg.Role == chat.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}

		var role string
		switch msg.Role {
		case chat.RoleUser:
			role = "user"
		case chat.RoleAssistant:
			role = "model"
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		if msg.Content == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	if len(contents) == 0 {
		return nil, "", fmt.Errorf("need at least one non-system message")
	}
	return contents, strings.Join(systemParts, "\n\n"), nil
}

// Complete implements chat.Client.
func (c *Client) Complete(ctx context.Context, in chat.Request) (chat.Response, error) {
	if c.api == nil {
		api, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return chat.Response{}, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeNetwork, err,
				fmt.Sprintf("cannot create Gemini client: %v", err))
		}
		c.api = api
	}

	contents, system, err := toContents(in.Messages)
	if err != nil {
		return chat.Response{}, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeBadRequest, err,
			fmt.Sprintf("cannot shape request for the GenAI API: %v", err))
	}

	config := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: int32(in.MaxTokens),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	result, err := c.api.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return chat.Response{}, classifyError(err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return chat.Response{}, chaterrors.NewError(chaterrors.ErrorTypeInternal,
			"received empty response from the GenAI API")
	}

	resp := chat.Response{
		Content:    result.Text(),
		StopReason: stopReason(result.Candidates[0].FinishReason),
	}
	if result.UsageMetadata != nil {
		resp.Usage = chat.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}
	return resp, nil
}

// ModelName implements chat.Client.
func (c *Client) ModelName() string {
	return c.model
}

// stopReason maps GenAI finish reasons onto the shared vocabulary.
func stopReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return "end_turn"
	case genai.FinishReasonMaxTokens:
		return "max_tokens"
	default:
		return strings.ToLower(string(reason))
	}
}

// classifyError maps GenAI SDK errors to the structured error types.
func classifyError(err error) *chaterrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request canceled")
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeAuth, err,
				"authentication failed - check the API key")
		case apiErr.Code == 429:
			return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeRateLimit, err, "rate limit exceeded")
		case apiErr.Code == 400:
			return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeBadRequest, err, "request rejected")
		case apiErr.Code >= 500:
			return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeInternal, err, "service error")
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeTimeout, err, "request timed out")
	case strings.Contains(lower, "connection"), strings.Contains(lower, "network"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeNetwork, err, "network error")
	case strings.Contains(lower, "quota"), strings.Contains(lower, "rate"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(lower, "api key"), strings.Contains(lower, "unauthorized"):
		return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeAuth, err, "authentication error")
	}

	return chaterrors.NewErrorWithCause(chaterrors.ErrorTypeUnknown, err, "completion failed")
}
