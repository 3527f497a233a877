package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/chat"
)

func TestSendFreshRecord(t *testing.T) {
	mock := chat.NewMockClient("hello there")
	mgr := NewManager(NewRecord("mock-model", 2), mock)

	reply, err := mgr.SendUser(context.Background(), "hi", false, false)
	require.NoError(t, err)
	assert.Equal(t, chat.NewAssistantMessage("hello there"), reply)

	// The service saw only the input: nothing retained, nothing pulled
	// beyond the one message in history.
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []chat.Message{chat.NewUserMessage("hi")}, calls[0].Messages)

	rec := mgr.Record()
	assert.Equal(t, []chat.Message{
		chat.NewUserMessage("hi"),
		chat.NewAssistantMessage("hello there"),
	}, rec.History)
	assert.Empty(t, rec.Context, "keep=false leaves nothing behind")
}

func TestSendRetention(t *testing.T) {
	mock := chat.NewMockClient("r1", "r2", "r3")
	mgr := NewManager(NewRecord("mock-model", 2), mock)
	ctx := context.Background()

	_, err := mgr.SendUser(ctx, "what's up", true, false)
	require.NoError(t, err)
	require.Equal(t, []chat.Message{chat.NewUserMessage("what's up")}, mgr.Record().Context,
		"keep=true retains exactly the input")

	// The next send re-sends the retained message, then the pulled window:
	// the whole 3-message history here, so the retained copy appears twice.
	_, err = mgr.SendUser(ctx, "new", false, false)
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []chat.Message{
		chat.NewUserMessage("what's up"),
		chat.NewUserMessage("what's up"),
		chat.NewAssistantMessage("r1"),
		chat.NewUserMessage("new"),
	}, calls[1].Messages)

	// keep=false: the context collapses back to the retained message.
	assert.Equal(t, []chat.Message{chat.NewUserMessage("what's up")}, mgr.Record().Context)

	// keep=true grows the context by exactly one.
	before := len(mgr.Record().Context)
	_, err = mgr.SendUser(ctx, "another", true, false)
	require.NoError(t, err)
	assert.Len(t, mgr.Record().Context, before+1)
}

func TestSendWindowClamp(t *testing.T) {
	mock := chat.NewMockClient()
	rec := NewRecord("mock-model", 2)
	for i := 0; i < 5; i++ {
		rec.History = append(rec.History,
			chat.NewUserMessage("q"),
			chat.NewAssistantMessage("a"),
		)
	}
	mgr := NewManager(rec, mock)

	_, err := mgr.SendUser(context.Background(), "latest", false, false)
	require.NoError(t, err)

	// includes=2, session=0: window is 4, so at most 5 messages are
	// pulled and the last is always the fresh input.
	call, ok := mock.LastCall()
	require.True(t, ok)
	require.Len(t, call.Messages, 5)
	assert.Equal(t, chat.NewUserMessage("latest"), call.Messages[4])
	assert.Equal(t, rec.History[6:11], call.Messages)
}

func TestSendSessionWidensWindow(t *testing.T) {
	mock := chat.NewMockClient()
	mgr := NewManager(NewRecord("mock-model", 2), mock)
	ctx := context.Background()

	// Seed enough history that the window bound is what limits the pull.
	for i := 0; i < 8; i++ {
		mgr.Record().History = append(mgr.Record().History,
			chat.NewUserMessage("q"),
			chat.NewAssistantMessage("a"),
		)
	}

	_, err := mgr.SendUser(ctx, "one", false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Record().SessionLen)
	call, _ := mock.LastCall()
	assert.Len(t, call.Messages, 5, "first extending send still uses the base window")

	_, err = mgr.SendUser(ctx, "two", false, true)
	require.NoError(t, err)
	assert.Equal(t, 2, mgr.Record().SessionLen)
	call, _ = mock.LastCall()
	assert.Len(t, call.Messages, 7, "window widened by one exchange")

	// A non-extending send resets the widening before pulling.
	_, err = mgr.SendUser(ctx, "three", false, false)
	require.NoError(t, err)
	assert.Zero(t, mgr.Record().SessionLen)
	call, _ = mock.LastCall()
	assert.Len(t, call.Messages, 5)
}

func TestSendSystemPinning(t *testing.T) {
	mock := chat.NewMockClient("r1", "r2", "r3", "r4")
	mgr := NewManager(NewRecord("mock-model", 2), mock)
	ctx := context.Background()

	_, err := mgr.SendUser(ctx, "first", true, false)
	require.NoError(t, err)
	_, err = mgr.SendUser(ctx, "second", true, false)
	require.NoError(t, err)

	_, err = mgr.SendSystem(ctx, "be brief", false, false)
	require.NoError(t, err)
	assert.Equal(t, []chat.Message{
		chat.NewSystemMessage("be brief"),
		chat.NewUserMessage("first"),
		chat.NewUserMessage("second"),
	}, mgr.Record().Context, "system message pinned to the front despite keep=false")

	// A second system send slots in behind the first; non-system order
	// is untouched.
	_, err = mgr.SendSystem(ctx, "be kind", false, false)
	require.NoError(t, err)
	assert.Equal(t, []chat.Message{
		chat.NewSystemMessage("be brief"),
		chat.NewSystemMessage("be kind"),
		chat.NewUserMessage("first"),
		chat.NewUserMessage("second"),
	}, mgr.Record().Context)
}

func TestSendServiceFailure(t *testing.T) {
	boom := errors.New("service unavailable")
	mock := chat.NewMockClient()
	mock.CompleteFunc = func(context.Context, chat.Request) (chat.Response, error) {
		return chat.Response{}, boom
	}

	rec := NewRecord("mock-model", 2)
	rec.Context = []chat.Message{chat.NewUserMessage("kept")}
	rec.History = []chat.Message{
		chat.NewUserMessage("kept"),
		chat.NewAssistantMessage("r0"),
	}
	mgr := NewManager(rec, mock)

	_, err := mgr.SendUser(context.Background(), "doomed", false, false)
	require.ErrorIs(t, err, boom)

	// The unanswered input stays in history; the context is restored so a
	// failed send never bloats the working set.
	assert.Equal(t, []chat.Message{
		chat.NewUserMessage("kept"),
		chat.NewAssistantMessage("r0"),
		chat.NewUserMessage("doomed"),
	}, rec.History)
	assert.Equal(t, []chat.Message{chat.NewUserMessage("kept")}, rec.Context)

	// The record remains usable: the next send pulls the unanswered
	// message as part of its window.
	mock.CompleteFunc = func(_ context.Context, req chat.Request) (chat.Response, error) {
		return chat.Response{Content: "recovered", StopReason: "end_turn"}, nil
	}
	reply, err := mgr.SendUser(context.Background(), "retry", false, false)
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply.Content)

	call, _ := mock.LastCall()
	assert.Equal(t, []chat.Message{
		chat.NewUserMessage("kept"),
		chat.NewUserMessage("kept"),
		chat.NewAssistantMessage("r0"),
		chat.NewUserMessage("doomed"),
		chat.NewUserMessage("retry"),
	}, call.Messages)
}

func TestSendSeededSystemRidesAlong(t *testing.T) {
	mock := chat.NewMockClient("sure")
	rec := NewRecord("mock-model", 2)
	rec.SeedSystem("answer briefly")
	mgr := NewManager(rec, mock)

	_, err := mgr.SendUser(context.Background(), "hi", false, false)
	require.NoError(t, err)

	call, _ := mock.LastCall()
	assert.Equal(t, []chat.Message{
		chat.NewSystemMessage("answer briefly"),
		chat.NewUserMessage("hi"),
	}, call.Messages)
	assert.Equal(t, []chat.Message{chat.NewSystemMessage("answer briefly")}, rec.Context)
	assert.Equal(t, []chat.Message{
		chat.NewUserMessage("hi"),
		chat.NewAssistantMessage("sure"),
	}, rec.History, "the seed lives in the context only")
}

func TestManagerOptions(t *testing.T) {
	mock := chat.NewMockClient()
	mgr := NewManagerWithOptions(NewRecord("mock-model", 2), mock, Options{
		MaxTokens:   1024,
		Temperature: 0.2,
	})

	_, err := mgr.SendUser(context.Background(), "hi", false, false)
	require.NoError(t, err)

	call, _ := mock.LastCall()
	assert.Equal(t, 1024, call.MaxTokens)
	assert.InDelta(t, 0.2, call.Temperature, 1e-6)

	// Zero options fall back to the chat defaults.
	mgr = NewManager(NewRecord("mock-model", 2), mock)
	_, err = mgr.SendUser(context.Background(), "hi", false, false)
	require.NoError(t, err)
	call, _ = mock.LastCall()
	assert.Equal(t, chat.DefaultMaxTokens, call.MaxTokens)
}
