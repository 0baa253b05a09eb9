package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"TelegramBotReminder/domain"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantCmd  string
		wantArgs string
		wantOK   bool
	}{
		{"/список", "/список", "", true},
		{"/напомни завтра в 10 купить кофе", "/напомни", "завтра в 10 купить кофе", true},
		{"/Remind@reminder_bot  завтра в 10 кофе ", "/remind", "завтра в 10 кофе", true},
		{"/отмена@Reminder_Bot 4", "/отмена", "4", true},
		{"/отмена@other_bot 4", "", "", false},
		{"/напомни\nзавтра в 10 кофе", "/напомни", "завтра в 10 кофе", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args, ok := parseCommand(tt.text, "reminder_bot")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFormatReminderList(t *testing.T) {
	reminders := []domain.Reminder{
		{ID: 3, ChatID: 1, Task: "купить кофе", RemindAt: time.Date(2024, 3, 2, 7, 0, 0, 0, time.UTC).UnixMilli()},
		{ID: 5, ChatID: 1, Task: "позвонить врачу", RemindAt: time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC).UnixMilli()},
	}

	assert.Equal(t,
		"📋 Ваши напоминания:\n\n"+
			"🕑 id: 3 02.03.2024 10:00 — купить кофе\n"+
			"🕑 id: 5 15.06.2024 21:00 — позвонить врачу\n\n"+
			"Часовой пояс: Europe/Moscow",
		formatReminderList(reminders, "Europe/Moscow"))

	assert.Contains(t, formatReminderList(reminders[:1], ""), "🕑 id: 3 02.03.2024 07:00 — купить кофе")
	assert.Contains(t, formatReminderList(reminders[:1], ""), "Часовой пояс: UTC")
}

func TestReminderHandler_Start(t *testing.T) {
	f := newHandlerFixture(t, nil)

	c := f.text(t, 1, 1, "/старт")
	assert.Contains(t, c.last(t), "Установи свой часовой пояс")
	require.Len(t, c.opts[0], 1)
	menu, ok := c.opts[0][0].(*tele.ReplyMarkup)
	require.True(t, ok)
	assert.True(t, menu.ResizeKeyboard)
	require.Len(t, menu.ReplyKeyboard, 2)
	assert.True(t, menu.ReplyKeyboard[1][0].Location)

	require.NoError(t, f.repo.SetUserTimezone(context.Background(), 1, "Europe/Moscow"))
	c = f.text(t, 1, 1, "/start")
	assert.Contains(t, c.last(t), "Твой часовой пояс - Europe/Moscow")
}

func TestReminderHandler_RemindListCancel(t *testing.T) {
	f := newHandlerFixture(t, nil)
	const chat = int64(-100)

	c := f.text(t, chat, 1, "/напомни завтра в 10 утра купить кофе")
	assert.Regexp(t, `^✅ Запомнил\. ID: 1, задача: "купить кофе" в \d{2}\.\d{2}\.\d{4} 10:00 \(UTC\)$`, c.last(t))

	c = f.text(t, chat, 1, "/список")
	assert.Contains(t, c.last(t), "🕑 id: 1 ")
	assert.Contains(t, c.last(t), " 10:00 — купить кофе")

	c = f.text(t, chat, 1, "/отмена 999")
	assert.Equal(t, "Напоминание с таким ID не найдено.", c.last(t))
	assert.Equal(t, 1, f.repo.Len())

	c = f.text(t, 555, 1, "/отмена 1")
	assert.Equal(t, "Напоминание с таким ID не найдено.", c.last(t))
	assert.Equal(t, 1, f.repo.Len())

	c = f.text(t, chat, 1, "/отмена abc")
	assert.Equal(t, "Неверный формат ID.", c.last(t))

	c = f.text(t, chat, 1, "/отмена 1")
	assert.Equal(t, "Забыли про купить кофе", c.last(t))
	assert.Zero(t, f.repo.Len())

	c = f.text(t, chat, 1, btnList)
	assert.Equal(t, "🕳 Нет активных напоминаний", c.last(t))
}

func TestReminderHandler_RemindErrors(t *testing.T) {
	f := newHandlerFixture(t, nil)

	tests := []struct {
		text string
		want string
	}{
		{"/напомни", "Используйте формат"},
		{"/напомни купить кофе", "⛔️ Не смог распознать дату"},
		{"/напомни завтра в 10", "⛔️ Не понял, о чем напомнить"},
		{"/напомни 01.01.2020 в 10 купить кофе", "⛔️ Время указано некорректно или в прошлом."},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			c := f.text(t, 1, 1, tt.text)
			assert.Contains(t, c.last(t), tt.want)
		})
	}
	assert.Zero(t, f.repo.Len())
}

func TestReminderHandler_IgnoresOtherBotsAndPlainText(t *testing.T) {
	f := newHandlerFixture(t, nil)

	c := f.text(t, 1, 1, "/напомни@other_bot завтра в 10 купить кофе")
	assert.Empty(t, c.sent)

	c = f.text(t, 1, 1, "просто сообщение")
	assert.Empty(t, c.sent)
	assert.Zero(t, f.repo.Len())
}

func TestReminderHandler_Timezone(t *testing.T) {
	f := newHandlerFixture(t, nil)

	c := f.text(t, 1, 1, "/пояс")
	assert.Contains(t, c.last(t), "Текущий часовой пояс: UTC")

	c = f.text(t, 1, 1, "/пояс Mars/Olympus")
	assert.Contains(t, c.last(t), "⚠️ Неизвестный часовой пояс: Mars/Olympus")

	c = f.text(t, 1, 1, "/timezone Europe/Moscow")
	assert.Equal(t, "✅ Часовой пояс установлен: Europe/Moscow", c.last(t))

	tz, err := f.repo.GetUserTimezone(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", tz)
}

func TestReminderHandler_Location(t *testing.T) {
	location := func() *fakeContext {
		c := textMessage(1, 1, "")
		c.msg.Location = &tele.Location{Lat: 55.75, Lng: 37.61}
		return c
	}

	t.Run("found", func(t *testing.T) {
		f := newHandlerFixture(t, stubLocator{tz: "Europe/Moscow"})
		c := location()
		require.NoError(t, f.handler.onLocation(c))
		assert.Equal(t, "✅ Часовой пояс установлен: Europe/Moscow", c.last(t))
	})

	t.Run("lookup failure", func(t *testing.T) {
		f := newHandlerFixture(t, stubLocator{err: errLookup})
		c := location()
		require.NoError(t, f.handler.onLocation(c))
		assert.Equal(t, "⚠️ Не удалось определить часовой пояс.", c.last(t))

		tz, err := f.repo.GetUserTimezone(context.Background(), 1)
		require.NoError(t, err)
		assert.Empty(t, tz)
	})
}

func TestReminderHandler_CalendarFlow(t *testing.T) {
	f := newHandlerFixture(t, nil)
	const chat, user = int64(-100), int64(7)
	require.NoError(t, f.repo.SetUserTimezone(context.Background(), chat, "Europe/Moscow"))

	c := f.text(t, chat, user, btnSchedule)
	assert.Equal(t, "Выберите день:", c.last(t))
	require.Len(t, c.opts[0], 1)
	assert.IsType(t, &tele.ReplyMarkup{}, c.opts[0][0])

	day := time.Now().AddDate(1, 0, 0).Format("02-01-2006")
	click := calendarClick(chat, user, "day|"+day)
	require.NoError(t, f.handler.onCalendar(click))
	assert.Equal(t, "В какое время напомнить? Пример: 21:00", click.last(t))
	require.Len(t, click.responses, 1)

	c = f.text(t, chat, user, "21:00")
	assert.Equal(t, "О чем нужно напомнить?", c.last(t))
	assert.Zero(t, f.repo.Len())

	c = f.text(t, chat, user, "позвонить врачу")
	want := fmt.Sprintf(`✅ Запомнил. ID: 1, задача: "позвонить врачу" в %s 21:00 (Europe/Moscow)`,
		time.Now().AddDate(1, 0, 0).Format("02.01.2006"))
	assert.Equal(t, want, c.last(t))
	assert.Equal(t, 1, f.repo.Len())

	c = f.text(t, chat, user, "ещё текст")
	assert.Empty(t, c.sent)
}

func TestReminderHandler_CalendarNavigation(t *testing.T) {
	f := newHandlerFixture(t, nil)

	click := calendarClick(1, 1, "nav|2024-07")
	require.NoError(t, f.handler.onCalendar(click))
	assert.Equal(t, []string{"Выберите день:"}, click.edited)
	assert.Empty(t, click.sent)

	click = calendarClick(1, 1, "nav|garbage")
	require.NoError(t, f.handler.onCalendar(click))
	assert.Empty(t, click.edited)
	assert.Len(t, click.responses, 1)

	click = calendarClick(1, 1, "noop")
	require.NoError(t, f.handler.onCalendar(click))
	assert.Empty(t, click.sent)
}
