// Package middleware provides cross-cutting wrappers for completion
// clients: request logging and usage recording. Wrappers compose with
// chat.Chain and pass errors through unchanged.
package middleware

import (
	"context"
	"strings"
	"time"

	"parley/pkg/chat"
)

// Event describes one completion call for usage recording.
type Event struct {
	Model            string
	Messages         int
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
	Err              error // nil on success
}

// Recorder receives one event per completion call. Implementations must
// not fail the call: recording problems are theirs to swallow or log.
type Recorder interface {
	Record(ev Event)
}

// NopRecorder discards all events.
type NopRecorder struct{}

// Nop returns a recorder that discards all events.
func Nop() Recorder {
	return &NopRecorder{}
}

// Record does nothing.
func (*NopRecorder) Record(Event) {}

// Usage returns middleware that reports token usage and timing for every
// completion call to recorder, on success and on failure. Counts come
// from the provider response when reported, otherwise they are estimated
// from the text.
func Usage(recorder Recorder) chat.Middleware {
	if recorder == nil {
		recorder = Nop()
	}

	return func(next chat.Client) chat.Client {
		return chat.WrapClient(
			func(ctx context.Context, req chat.Request) (chat.Response, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)

				ev := Event{
					Model:    next.ModelName(),
					Messages: len(req.Messages),
					Duration: time.Since(start),
					Err:      err,
				}
				if err == nil {
					ev.PromptTokens, ev.CompletionTokens = usageCounts(req, resp)
				}
				recorder.Record(ev)

				return resp, err
			},
			next.ModelName,
		)
	}
}

// usageCounts prefers provider-reported token counts and estimates the
// missing ones from the request and response text.
func usageCounts(req chat.Request, resp chat.Response) (prompt, completion int) {
	prompt = resp.Usage.PromptTokens
	completion = resp.Usage.CompletionTokens

	if prompt == 0 {
		var b strings.Builder
		for i := range req.Messages {
			b.WriteString(req.Messages[i].Content)
			b.WriteByte('\n')
		}
		prompt = EstimateTokens(b.String())
	}
	if completion == 0 {
		completion = EstimateTokens(resp.Content)
	}
	return prompt, completion
}
