package middleware

import (
	"context"
	"time"

	"parley/pkg/chat"
	"parley/pkg/chat/chaterrors"
	"parley/pkg/logx"
)

// promptLogMaxChars bounds how much of a failed prompt is logged.
// Larger prompts are reduced to head and tail plus a content hash.
const promptLogMaxChars = 4000

// Logging returns middleware that logs one line per completion call:
// model, message count, duration, and outcome. A failed call also logs
// the prompt that failed, sanitized. Lines go out at debug level so
// normal runs stay quiet.
func Logging(logger *logx.Logger) chat.Middleware {
	if logger == nil {
		logger = logx.NewLogger("chat")
	}

	return func(next chat.Client) chat.Client {
		return chat.WrapClient(
			func(ctx context.Context, req chat.Request) (chat.Response, error) {
				start := time.Now()
				logger.Debug("completion start: model=%s messages=%d max_tokens=%d",
					next.ModelName(), len(req.Messages), req.MaxTokens)

				resp, err := next.Complete(ctx, req)
				elapsed := time.Since(start).Milliseconds()

				if err != nil {
					logger.Debug("completion failed: model=%s duration=%dms type=%s err=%v",
						next.ModelName(), elapsed, chaterrors.TypeOf(err), err)
					if n := len(req.Messages); n > 0 {
						logger.Debug("failed prompt: %s",
							chaterrors.SanitizePrompt(req.Messages[n-1].Content, promptLogMaxChars))
					}
					return resp, err
				}

				logger.Debug("completion done: model=%s duration=%dms stop=%s chars=%d",
					next.ModelName(), elapsed, resp.StopReason, len(resp.Content))
				return resp, nil
			},
			next.ModelName,
		)
	}
}
