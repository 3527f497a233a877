package conversation

import (
	"context"

	"parley/pkg/chat"
)

// Options tune the completion requests a Manager issues. Zero values fall
// back to the chat package defaults.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// Manager drives one conversation record: it decides which messages ride
// along with each send, keeps the full history appended, and maintains the
// curated context across exchanges.
type Manager struct {
	rec    *Record
	client chat.Client
	opts   Options
}

// NewManager creates a manager over rec using client for completions.
func NewManager(rec *Record, client chat.Client) *Manager {
	return NewManagerWithOptions(rec, client, Options{})
}

// NewManagerWithOptions creates a manager with explicit request limits.
func NewManagerWithOptions(rec *Record, client chat.Client, opts Options) *Manager {
	return &Manager{rec: rec, client: client, opts: opts}
}

// Record returns the record the manager mutates.
func (m *Manager) Record() *Record {
	return m.rec
}

func (m *Manager) newRequest(messages []chat.Message) chat.Request {
	req := chat.NewRequest(messages)
	if m.opts.MaxTokens > 0 {
		req.MaxTokens = m.opts.MaxTokens
	}
	if m.opts.Temperature > 0 {
		req.Temperature = m.opts.Temperature
	}
	return req
}

// Send runs one exchange. The input lands in history immediately, a window
// of recent history is pulled into the context for the service call, and
// after the reply arrives the pulled window is discarded again. keep
// retains the input in the context afterwards (system messages are always
// retained and pinned to the front). extendSession widens the pull window
// by one exchange per consecutive extending send; a non-extending send
// resets that widening.
//
// On service failure the input stays in history unanswered and the context
// is restored to its pre-send state; the error is returned as-is.
func (m *Manager) Send(ctx context.Context, content string, role chat.Role, keep, extendSession bool) (chat.Message, error) {
	if !extendSession {
		m.rec.SessionLen = 0
	}
	window := (m.rec.Includes + m.rec.SessionLen) * 2

	m.rec.History = append(m.rec.History, chat.Message{Role: role, Content: content})

	// Pull the last window+1 history messages (the whole history when
	// shorter). The slice always ends with the input appended above.
	start := 0
	if len(m.rec.History) > window+1 {
		start = len(m.rec.History) - 1 - window
	}
	mark := len(m.rec.Context)
	m.rec.Context = append(m.rec.Context, m.rec.History[start:]...)

	resp, err := m.client.Complete(ctx, m.newRequest(m.rec.Context))
	if err != nil {
		m.rec.Context = m.rec.Context[:mark]
		return chat.Message{}, err
	}

	reply := chat.NewAssistantMessage(resp.Content)
	m.rec.History = append(m.rec.History, reply)

	last := m.rec.Context[len(m.rec.Context)-1]
	m.rec.Context = m.rec.Context[:mark]
	if keep || role == chat.RoleSystem {
		m.rec.Context = append(m.rec.Context, last)
		if role == chat.RoleSystem {
			m.rec.Context = pinSystemFirst(m.rec.Context)
		}
	}

	if extendSession {
		m.rec.SessionLen++
	}
	return reply, nil
}

// SendUser sends content as the user.
func (m *Manager) SendUser(ctx context.Context, content string, keep, extendSession bool) (chat.Message, error) {
	return m.Send(ctx, content, chat.RoleUser, keep, extendSession)
}

// SendSystem sends content as a system message. System messages are always
// retained in the context regardless of keep.
func (m *Manager) SendSystem(ctx context.Context, content string, keep, extendSession bool) (chat.Message, error) {
	return m.Send(ctx, content, chat.RoleSystem, keep, extendSession)
}

// pinSystemFirst stably partitions msgs so every system message precedes
// every other message, preserving relative order within both groups.
func pinSystemFirst(msgs []chat.Message) []chat.Message {
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == chat.RoleSystem {
			out = append(out, m)
		}
	}
	for _, m := range msgs {
		if m.Role != chat.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}
