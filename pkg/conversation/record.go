// Package conversation implements the context-window manager: named
// conversation records whose full history is append-only while a curated
// working set (the context) is re-sent to the completion service on every
// exchange.
package conversation

import "parley/pkg/chat"

// DefaultIncludes is the baseline number of exchanges pulled into the
// request window for records that don't configure their own.
const DefaultIncludes = 2

// Record is the persistent unit of one named conversation.
//
// History is the full log and is never truncated or reordered. Context is
// the working set: a curated selection of messages re-sent with every
// request. It may repeat history entries and need not be contiguous.
// Includes and SessionLen size the window of recent history pulled into
// each request (counted in messages, not tokens).
type Record struct {
	Model      string         `json:"model"`
	History    []chat.Message `json:"history"`
	Context    []chat.Message `json:"context"`
	Includes   int            `json:"includes"`
	SessionLen int            `json:"session_len"`
}

// NewRecord creates a fresh record for the given model. includes <= 0
// falls back to DefaultIncludes.
func NewRecord(model string, includes int) *Record {
	if includes <= 0 {
		includes = DefaultIncludes
	}
	return &Record{
		Model:    model,
		Includes: includes,
	}
}

// SeedSystem places a system message at the front of the context without
// sending anything. Intended for fresh records so a configured system
// prompt rides along with every request from the first send on.
func (r *Record) SeedSystem(content string) {
	if content == "" {
		return
	}
	r.Context = append([]chat.Message{chat.NewSystemMessage(content)}, r.Context...)
}

// TrimContext keeps the most recent n user turns: every system message
// survives, and of the rest only the suffix starting at the n-th-from-last
// user message is retained. n <= 0 drops all non-system messages. When the
// context holds fewer than n user messages, trimming is a no-op.
func (r *Record) TrimContext(n int) {
	if n > 0 {
		users := 0
		for _, m := range r.Context {
			if m.Role == chat.RoleUser {
				users++
			}
		}
		if users < n {
			return
		}
	}

	start := len(r.Context)
	seen := 0
	for i := len(r.Context) - 1; i >= 0; i-- {
		if r.Context[i].Role == chat.RoleUser {
			seen++
			if seen == n {
				start = i
				break
			}
		}
	}

	kept := make([]chat.Message, 0, len(r.Context))
	for i, m := range r.Context {
		if m.Role == chat.RoleSystem || i >= start {
			kept = append(kept, m)
		}
	}
	r.Context = kept
}
