package conversation

import (
	"context"
	"errors"

	"parley/pkg/chat"
)

// ErrSessionClosed is returned by Session.Send after Close.
var ErrSessionClosed = errors.New("session closed")

// Session is a scratch exchange loop over a manager's conversation. It
// snapshots the manager's context as its private running history and sends
// against that, leaving the record untouched until Close reconciles every
// exchange back into the history.
type Session struct {
	mgr         *Manager
	running     []chat.Message
	snapshotLen int
	closed      bool
}

// OpenSession starts a session seeded with a copy of the current context.
func (m *Manager) OpenSession() *Session {
	running := append([]chat.Message(nil), m.rec.Context...)
	return &Session{
		mgr:         m,
		running:     running,
		snapshotLen: len(running),
	}
}

// Send runs one exchange against the running history. The manager's record
// is not touched. On service failure the unanswered user message stays in
// the running history and is reconciled like any other on Close.
func (s *Session) Send(ctx context.Context, content string) (chat.Message, error) {
	if s.closed {
		return chat.Message{}, ErrSessionClosed
	}

	s.running = append(s.running, chat.NewUserMessage(content))

	resp, err := s.mgr.client.Complete(ctx, s.mgr.newRequest(s.running))
	if err != nil {
		return chat.Message{}, err
	}

	reply := chat.NewAssistantMessage(resp.Content)
	s.running = append(s.running, reply)
	return reply, nil
}

// Close appends everything the session produced (the running history minus
// the opening snapshot) to the manager's history. The context is left
// exactly as it was at open. Close is idempotent and must run on every
// exit path, so callers defer it right after OpenSession.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.mgr.rec.History = append(s.mgr.rec.History, s.running[s.snapshotLen:]...)
}
