package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TelegramBotReminder/domain"
)

type createCall struct {
	chatID int64
	text   string
	date   string
}

type recordingCreator struct {
	mu    sync.Mutex
	calls []createCall
	err   error
}

func (c *recordingCreator) CreateReminder(_ context.Context, chatID int64, text, date string) (Created, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, createCall{chatID: chatID, text: text, date: date})
	if c.err != nil {
		return Created{}, c.err
	}
	return Created{Reminder: domain.Reminder{ID: int64(len(c.calls)), ChatID: chatID}}, nil
}

func TestConversation_IgnoredWithoutFlow(t *testing.T) {
	conv := NewConversation(&recordingCreator{})

	_, handled := conv.Handle(context.Background(), 1, 1, "21:00")
	assert.False(t, handled)

	st, ok := conv.State(1)
	assert.False(t, ok)
	assert.Equal(t, StepIdle, st.Step)
}

func TestConversation_Flow(t *testing.T) {
	creator := &recordingCreator{}
	conv := NewConversation(creator)
	ctx := context.Background()
	const user, chat = int64(10), int64(-100)

	assert.Equal(t, PromptTime, conv.Begin(user, "15-06-2024"))

	reply, handled := conv.Handle(ctx, user, chat, "21:00")
	require.True(t, handled)
	assert.Equal(t, PromptTask, reply.Prompt)
	assert.Nil(t, reply.Created)
	assert.Empty(t, creator.calls, "time alone must not create a reminder")

	st, _ := conv.State(user)
	assert.Equal(t, StepAwaitingTask, st.Step)
	assert.Equal(t, []string{"21:00"}, st.Answers)

	reply, handled = conv.Handle(ctx, user, chat, "позвонить врачу")
	require.True(t, handled)
	require.NotNil(t, reply.Created)
	assert.NoError(t, reply.Err)
	require.Len(t, creator.calls, 1)
	assert.Equal(t, createCall{chatID: chat, text: "21:00 позвонить врачу", date: "15-06-2024"}, creator.calls[0])

	st, ok := conv.State(user)
	assert.True(t, ok)
	assert.Equal(t, StepIdle, st.Step)
	assert.Empty(t, st.Date)
	assert.Empty(t, st.Answers)

	_, handled = conv.Handle(ctx, user, chat, "ещё что-то")
	assert.False(t, handled)
	assert.Len(t, creator.calls, 1)
}

func TestConversation_ReentryOverwrites(t *testing.T) {
	creator := &recordingCreator{}
	conv := NewConversation(creator)
	ctx := context.Background()

	conv.Begin(1, "10-06-2024")
	_, _ = conv.Handle(ctx, 1, 1, "10:00")

	conv.Begin(1, "11-06-2024")
	st, _ := conv.State(1)
	assert.Equal(t, StepAwaitingTime, st.Step)
	assert.Equal(t, "11-06-2024", st.Date)
	assert.Empty(t, st.Answers)

	_, _ = conv.Handle(ctx, 1, 1, "12:00")
	_, _ = conv.Handle(ctx, 1, 1, "обед")
	require.Len(t, creator.calls, 1)
	assert.Equal(t, "12:00 обед", creator.calls[0].text)
	assert.Equal(t, "11-06-2024", creator.calls[0].date)
}

func TestConversation_UsersAreIndependent(t *testing.T) {
	creator := &recordingCreator{}
	conv := NewConversation(creator)
	ctx := context.Background()

	conv.Begin(1, "10-06-2024")
	_, handled := conv.Handle(ctx, 2, 2, "10:00")
	assert.False(t, handled)

	st, _ := conv.State(1)
	assert.Equal(t, StepAwaitingTime, st.Step)
}

func TestConversation_FailureResetsFlow(t *testing.T) {
	creator := &recordingCreator{err: domain.ErrNoExpression}
	conv := NewConversation(creator)
	ctx := context.Background()

	conv.Begin(1, "15-06-2024")
	_, _ = conv.Handle(ctx, 1, 1, "когда-нибудь")
	reply, handled := conv.Handle(ctx, 1, 1, "позвонить")
	require.True(t, handled)
	assert.ErrorIs(t, reply.Err, domain.ErrNoExpression)

	st, _ := conv.State(1)
	assert.Equal(t, StepIdle, st.Step)
}

func TestConversation_Reset(t *testing.T) {
	conv := NewConversation(&recordingCreator{})
	conv.Begin(1, "15-06-2024")
	conv.Reset(1)

	_, handled := conv.Handle(context.Background(), 1, 1, "21:00")
	assert.False(t, handled)
}

func TestConversation_StructuredFlowEndToEnd(t *testing.T) {
	f := newServiceFixture(t, refTime, nil)
	ctx := context.Background()
	require.NoError(t, f.service.SetTimezone(ctx, 77, "Europe/Moscow"))

	conv := NewConversation(f.service)
	conv.Begin(77, "15-06-2024")

	_, _ = conv.Handle(ctx, 77, 77, "21:00")
	assert.Empty(t, f.stored(t))

	reply, handled := conv.Handle(ctx, 77, 77, "позвонить врачу")
	require.True(t, handled)
	require.NoError(t, reply.Err)
	require.NotNil(t, reply.Created)

	stored := f.stored(t)
	require.Len(t, stored, 1)
	assert.Equal(t, "позвонить врачу", stored[0].Task)
	assert.Equal(t, time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC).UnixMilli(), stored[0].RemindAt)
	assert.Equal(t, 1, f.scheduler.Pending())
}
