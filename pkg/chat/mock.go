package chat

import (
	"context"
	"sync"
)

// MockClient implements Client for tests. Replies are served from a queue;
// override CompleteFunc for custom behavior. Every request is recorded so
// tests can assert on the exact message sequences the service saw.
type MockClient struct {
	// CompleteFunc is called when Complete is invoked. Override to customize.
	CompleteFunc func(ctx context.Context, req Request) (Response, error)

	// Model is the name returned by ModelName.
	Model string

	mu      sync.Mutex
	calls   []Request
	replies []string
}

// NewMockClient creates a mock that answers with the given replies in
// order, then with "ok" once the queue is drained.
func NewMockClient(replies ...string) *MockClient {
	m := &MockClient{
		Model:   "mock-model",
		replies: replies,
	}
	m.CompleteFunc = func(_ context.Context, _ Request) (Response, error) {
		return Response{
			Content:    m.nextReply(),
			StopReason: "end_turn",
		}, nil
	}
	return m
}

func (m *MockClient) nextReply() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return "ok"
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply
}

// Complete implements Client. The message slice is copied before recording
// because callers may mutate theirs after the call returns.
func (m *MockClient) Complete(ctx context.Context, req Request) (Response, error) {
	recorded := req
	recorded.Messages = append([]Message(nil), req.Messages...)

	m.mu.Lock()
	m.calls = append(m.calls, recorded)
	m.mu.Unlock()

	return m.CompleteFunc(ctx, req)
}

// ModelName implements Client.
func (m *MockClient) ModelName() string {
	return m.Model
}

// Calls returns a snapshot of all recorded requests.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// LastCall returns the most recent request and true, or false when no
// call has been made.
func (m *MockClient) LastCall() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return Request{}, false
	}
	return m.calls[len(m.calls)-1], true
}
