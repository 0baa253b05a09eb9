package application

import (
	"context"
	"strings"
	"sync"
)

type Step int

const (
	StepIdle         Step = -1
	StepAwaitingTime Step = 0
	StepAwaitingTask Step = 1
)

// ConversationState is the calendar flow of one user.
type ConversationState struct {
	Step    Step
	Date    string
	Answers []string
}

// Reply is what the conversation wants sent back to the user.
type Reply struct {
	// Created is set when the flow finished and a reminder was stored.
	Created *Created
	// Err is the failure of the final step, if any.
	Err error
	// Prompt is the next question, when the flow goes on.
	Prompt string
}

const (
	PromptTime = "В какое время напомнить? Пример: 21:00"
	PromptTask = "О чем нужно напомнить?"
)

// ReminderCreator is implemented by *ReminderService.
type ReminderCreator interface {
	CreateReminder(ctx context.Context, chatID int64, text, date string) (Created, error)
}

// Conversation collects time and task after a calendar date was picked.
// States are kept per user in memory and are lost on restart.
type Conversation struct {
	creator ReminderCreator

	mu     sync.Mutex
	states map[int64]*ConversationState
}

func NewConversation(creator ReminderCreator) *Conversation {
	return &Conversation{
		creator: creator,
		states:  make(map[int64]*ConversationState),
	}
}

// Begin starts the flow for userID on date, replacing any flow in progress.
func (c *Conversation) Begin(userID int64, date string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states[userID] = &ConversationState{Step: StepAwaitingTime, Date: date, Answers: []string{}}
	return PromptTime
}

// Handle feeds a plain text message into the flow. handled is false when the
// user has no flow in progress; the message then belongs to command handling.
func (c *Conversation) Handle(ctx context.Context, userID, chatID int64, text string) (reply Reply, handled bool) {
	c.mu.Lock()
	st, ok := c.states[userID]
	if !ok || (st.Step != StepAwaitingTime && st.Step != StepAwaitingTask) {
		c.mu.Unlock()
		return Reply{}, false
	}

	text = strings.TrimSpace(text)
	if st.Step == StepAwaitingTime {
		st.Answers = append(st.Answers[:0], text)
		st.Step = StepAwaitingTask
		c.mu.Unlock()
		return Reply{Prompt: PromptTask}, true
	}

	date := st.Date
	input := strings.TrimSpace(strings.Join(append(st.Answers, text), " "))
	st.Step, st.Date, st.Answers = StepIdle, "", []string{}
	c.mu.Unlock()

	created, err := c.creator.CreateReminder(ctx, chatID, input, date)
	if err != nil {
		return Reply{Err: err}, true
	}
	return Reply{Created: &created}, true
}

func (c *Conversation) Reset(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, userID)
}

// State returns a copy of the user's state.
func (c *Conversation) State(userID int64) (ConversationState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[userID]
	if !ok {
		return ConversationState{Step: StepIdle}, false
	}
	cp := *st
	cp.Answers = append([]string(nil), st.Answers...)
	return cp, true
}
