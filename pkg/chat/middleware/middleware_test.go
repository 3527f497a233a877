package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/chat"
	"parley/pkg/logx"
)

// captureRecorder keeps every event for assertions.
type captureRecorder struct {
	events []Event
}

func (r *captureRecorder) Record(ev Event) {
	r.events = append(r.events, ev)
}

func TestUsageReportedCounts(t *testing.T) {
	mock := chat.NewMockClient()
	mock.CompleteFunc = func(context.Context, chat.Request) (chat.Response, error) {
		return chat.Response{
			Content:    "hello there",
			StopReason: "end_turn",
			Usage:      chat.Usage{PromptTokens: 42, CompletionTokens: 7},
		}, nil
	}

	rec := &captureRecorder{}
	client := chat.Chain(mock, Usage(rec))

	resp, err := client.Complete(context.Background(), chat.NewRequest([]chat.Message{
		chat.NewUserMessage("hi"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, "mock-model", ev.Model)
	assert.Equal(t, 1, ev.Messages)
	// Provider-reported counts win over estimation.
	assert.Equal(t, 42, ev.PromptTokens)
	assert.Equal(t, 7, ev.CompletionTokens)
	assert.NoError(t, ev.Err)
}

func TestUsageEstimatesMissingCounts(t *testing.T) {
	mock := chat.NewMockClient("a reasonably long reply with several words in it")

	rec := &captureRecorder{}
	client := chat.Chain(mock, Usage(rec))

	_, err := client.Complete(context.Background(), chat.NewRequest([]chat.Message{
		chat.NewUserMessage("tell me something reasonably long please"),
	}))
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Positive(t, ev.PromptTokens)
	assert.Positive(t, ev.CompletionTokens)
}

func TestUsageRecordsFailures(t *testing.T) {
	boom := errors.New("boom")
	mock := chat.NewMockClient()
	mock.CompleteFunc = func(context.Context, chat.Request) (chat.Response, error) {
		return chat.Response{}, boom
	}

	rec := &captureRecorder{}
	client := chat.Chain(mock, Usage(rec))

	_, err := client.Complete(context.Background(), chat.NewRequest([]chat.Message{
		chat.NewUserMessage("hi"),
	}))
	require.ErrorIs(t, err, boom)

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.ErrorIs(t, ev.Err, boom)
	assert.Zero(t, ev.PromptTokens)
	assert.Zero(t, ev.CompletionTokens)
}

func TestUsageNilRecorder(t *testing.T) {
	mock := chat.NewMockClient("fine")
	client := chat.Chain(mock, Usage(nil))

	resp, err := client.Complete(context.Background(), chat.NewRequest([]chat.Message{
		chat.NewUserMessage("hi"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "fine", resp.Content)
}

func TestLoggingPassthrough(t *testing.T) {
	mock := chat.NewMockClient("reply")
	client := chat.Chain(mock, Logging(logx.NewLogger("test")))

	assert.Equal(t, "mock-model", client.ModelName())

	resp, err := client.Complete(context.Background(), chat.NewRequest([]chat.Message{
		chat.NewUserMessage("hi"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "reply", resp.Content)

	// The wrapped client saw the original request.
	last, ok := mock.LastCall()
	require.True(t, ok)
	require.Len(t, last.Messages, 1)
	assert.Equal(t, "hi", last.Messages[0].Content)
}

func TestLoggingPassesErrorsUnchanged(t *testing.T) {
	boom := errors.New("boom")
	mock := chat.NewMockClient()
	mock.CompleteFunc = func(context.Context, chat.Request) (chat.Response, error) {
		return chat.Response{}, boom
	}

	client := chat.Chain(mock, Logging(nil), Usage(Nop()))
	_, err := client.Complete(context.Background(), chat.NewRequest(nil))
	assert.ErrorIs(t, err, boom)
}

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, EstimateTokens(""))

	short := EstimateTokens("hello")
	long := EstimateTokens("hello hello hello hello hello hello hello hello")
	assert.Positive(t, short)
	assert.Greater(t, long, short)
}
