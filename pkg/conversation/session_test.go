package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/chat"
)

func TestSessionReconcilesOnClose(t *testing.T) {
	mock := chat.NewMockClient("r1", "s1", "s2")
	mgr := NewManager(NewRecord("mock-model", 2), mock)
	ctx := context.Background()

	_, err := mgr.SendUser(ctx, "hello", true, false)
	require.NoError(t, err)
	historyBefore := append([]chat.Message(nil), mgr.Record().History...)
	contextBefore := append([]chat.Message(nil), mgr.Record().Context...)

	sess := mgr.OpenSession()
	_, err = sess.Send(ctx, "first")
	require.NoError(t, err)
	_, err = sess.Send(ctx, "second")
	require.NoError(t, err)

	// The record is untouched while the session runs.
	assert.Equal(t, historyBefore, mgr.Record().History)

	sess.Close()

	// Two exchanges reconcile as exactly four new history messages; the
	// context stays as it was at open.
	assert.Equal(t, append(historyBefore,
		chat.NewUserMessage("first"),
		chat.NewAssistantMessage("s1"),
		chat.NewUserMessage("second"),
		chat.NewAssistantMessage("s2"),
	), mgr.Record().History)
	assert.Equal(t, contextBefore, mgr.Record().Context)
}

func TestSessionSeesContextSnapshot(t *testing.T) {
	mock := chat.NewMockClient("s1", "s2")
	rec := NewRecord("mock-model", 2)
	rec.SeedSystem("rules")
	rec.Context = append(rec.Context, chat.NewUserMessage("pinned"))
	mgr := NewManager(rec, mock)

	sess := mgr.OpenSession()
	defer sess.Close()

	_, err := sess.Send(context.Background(), "question")
	require.NoError(t, err)

	call, _ := mock.LastCall()
	assert.Equal(t, []chat.Message{
		chat.NewSystemMessage("rules"),
		chat.NewUserMessage("pinned"),
		chat.NewUserMessage("question"),
	}, call.Messages)

	// Mutating the record mid-session does not leak into the snapshot.
	rec.TrimContext(0)
	_, err = sess.Send(context.Background(), "followup")
	require.NoError(t, err)
	call, _ = mock.LastCall()
	require.Len(t, call.Messages, 5)
	assert.Equal(t, chat.NewUserMessage("pinned"), call.Messages[1])
}

func TestSessionCloseIdempotent(t *testing.T) {
	mock := chat.NewMockClient("s1")
	mgr := NewManager(NewRecord("mock-model", 2), mock)

	sess := mgr.OpenSession()
	_, err := sess.Send(context.Background(), "only")
	require.NoError(t, err)

	sess.Close()
	sess.Close()

	assert.Len(t, mgr.Record().History, 2, "double close must not duplicate the suffix")

	_, err = sess.Send(context.Background(), "late")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Len(t, mgr.Record().History, 2)
}

func TestSessionFailedSendStillReconciled(t *testing.T) {
	boom := errors.New("gone")
	mock := chat.NewMockClient("s1")
	mgr := NewManager(NewRecord("mock-model", 2), mock)

	sess := mgr.OpenSession()
	_, err := sess.Send(context.Background(), "works")
	require.NoError(t, err)

	mock.CompleteFunc = func(context.Context, chat.Request) (chat.Response, error) {
		return chat.Response{}, boom
	}
	_, err = sess.Send(context.Background(), "fails")
	require.ErrorIs(t, err, boom)

	sess.Close()

	// The unanswered message is part of the reconciled suffix.
	assert.Equal(t, []chat.Message{
		chat.NewUserMessage("works"),
		chat.NewAssistantMessage("s1"),
		chat.NewUserMessage("fails"),
	}, mgr.Record().History)
}

func TestSessionOnEmptyRecord(t *testing.T) {
	mock := chat.NewMockClient("s1")
	mgr := NewManager(NewRecord("mock-model", 2), mock)

	sess := mgr.OpenSession()
	reply, err := sess.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "s1", reply.Content)

	call, _ := mock.LastCall()
	assert.Equal(t, []chat.Message{chat.NewUserMessage("hi")}, call.Messages)

	sess.Close()
	assert.Len(t, mgr.Record().History, 2)
	assert.Empty(t, mgr.Record().Context)
}
