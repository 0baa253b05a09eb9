package handler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"TelegramBotReminder/application"
	"TelegramBotReminder/domain"
	"TelegramBotReminder/domain/repotest"
	"TelegramBotReminder/infrastructure/rutime"
)

// fakeContext implements the parts of tele.Context the handler uses.
type fakeContext struct {
	tele.Context

	msg       *tele.Message
	callback  *tele.Callback
	sent      []string
	opts      [][]interface{}
	edited    []string
	responses []*tele.CallbackResponse
}

func (f *fakeContext) Message() *tele.Message {
	if f.msg != nil {
		return f.msg
	}
	if f.callback != nil {
		return f.callback.Message
	}
	return nil
}

func (f *fakeContext) Callback() *tele.Callback { return f.callback }

func (f *fakeContext) Chat() *tele.Chat { return f.Message().Chat }

func (f *fakeContext) Sender() *tele.User {
	if f.callback != nil {
		return f.callback.Sender
	}
	return f.msg.Sender
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, what.(string))
	f.opts = append(f.opts, opts)
	return nil
}

func (f *fakeContext) Edit(what interface{}, _ ...interface{}) error {
	f.edited = append(f.edited, what.(string))
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	if len(resp) == 0 {
		f.responses = append(f.responses, nil)
	}
	return nil
}

func (f *fakeContext) last(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func textMessage(chatID, userID int64, text string) *fakeContext {
	return &fakeContext{msg: &tele.Message{
		Text:   text,
		Chat:   &tele.Chat{ID: chatID},
		Sender: &tele.User{ID: userID},
	}}
}

func calendarClick(chatID, userID int64, data string) *fakeContext {
	return &fakeContext{callback: &tele.Callback{
		Data:    data,
		Sender:  &tele.User{ID: userID},
		Message: &tele.Message{Chat: &tele.Chat{ID: chatID}},
	}}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, int64, string) error { return nil }

type stubLocator struct {
	tz  string
	err error
}

func (l stubLocator) Timezone(context.Context, float64, float64) (string, error) {
	return l.tz, l.err
}

type handlerFixture struct {
	repo    *repotest.MemoryRepository
	handler *ReminderHandler
}

func newHandlerFixture(t *testing.T, locator application.TimezoneLocator) *handlerFixture {
	t.Helper()

	repo := repotest.NewMemoryRepository()
	scheduler := application.NewScheduler(repo, nopNotifier{}, zerolog.Nop(), time.Second)
	t.Cleanup(scheduler.Stop)
	service := application.NewReminderService(repo, application.NewResolver(rutime.New()), scheduler, locator, zerolog.Nop())

	return &handlerFixture{
		repo:    repo,
		handler: NewReminderHandler(service, application.NewConversation(service), "@reminder_bot"),
	}
}

func (f *handlerFixture) text(t *testing.T, chatID, userID int64, text string) *fakeContext {
	t.Helper()
	c := textMessage(chatID, userID, text)
	require.NoError(t, f.handler.onText(c))
	return c
}

var errLookup = errors.Wrap(domain.ErrTimezoneLookup, "geonames status 503")
