package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"TelegramBotReminder/application"
	"TelegramBotReminder/domain"
)

const (
	btnSchedule = "📅 Запланировать"
	btnList     = "📋 Список"
	btnHelp     = "📖 Команды"
	btnLocation = "📍 Определить часовой пояс"

	displayLayout = "02.01.2006 15:04"
)

const helpMessage = `Список команд:

- /напомни {текст напоминания с датой} - создать новое напоминание, например "/напомни завтра в 10 утра купить кофе"

- /список - вывести список текущих сохраненных напоминаний

- /отмена {id напоминания} - отменить напоминание по id, например "/отмена 4"

- /пояс {часовой пояс} - установить часовой пояс вручную, например "/пояс Europe/Moscow"

Кнопка "📅 Запланировать" открывает календарь: выберите день, затем время и текст напоминания.`

type ReminderHandler struct {
	reminderService *application.ReminderService
	conversation    *application.Conversation
	botUsername     string
	now             func() time.Time
}

func NewReminderHandler(reminderService *application.ReminderService, conversation *application.Conversation, botUsername string) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
		conversation:    conversation,
		botUsername:     strings.TrimPrefix(botUsername, "@"),
		now:             time.Now,
	}
}

// HandleMessages registers every endpoint on bot. Commands are dispatched from
// OnText because telebot only routes Latin command names by itself.
func (h *ReminderHandler) HandleMessages(bot *tele.Bot) {
	bot.Handle(tele.OnText, h.onText)
	bot.Handle(tele.OnLocation, h.onLocation)
	bot.Handle(&tele.Btn{Unique: calendarUnique}, h.onCalendar)
}

func mainMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(
		menu.Row(menu.Text(btnSchedule), menu.Text(btnList), menu.Text(btnHelp)),
		menu.Row(menu.Location(btnLocation)),
	)
	return menu
}

func (h *ReminderHandler) onText(c tele.Context) error {
	m := c.Message()
	text := strings.TrimSpace(m.Text)

	log.Debug().Int64("chat_id", m.Chat.ID).Int64("user_id", senderID(c)).Msg("received a message")

	// Команды обрабатываются раньше диалога с календарем
	if strings.HasPrefix(text, "/") {
		cmd, args, ok := parseCommand(text, h.botUsername)
		if !ok {
			return nil
		}
		switch cmd {
		case "/старт", "/start":
			return h.handleStartCommand(c)
		case "/напомни", "/remind":
			return h.handleRemindCommand(c, args)
		case "/список", "/list":
			return h.handleListCommand(c)
		case "/отмена", "/cancel":
			return h.handleCancelCommand(c, args)
		case "/пояс", "/timezone":
			return h.handleTimezoneCommand(c, args)
		case "/помощь", "/help":
			return h.handleHelpCommand(c)
		}
		return nil
	}

	// Кнопки главного меню
	switch text {
	case btnList:
		return h.handleListCommand(c)
	case btnHelp:
		return h.handleHelpCommand(c)
	case btnSchedule:
		return c.Send("Выберите день:", calendarMarkup(h.now()))
	}

	reply, handled := h.conversation.Handle(context.Background(), senderID(c), m.Chat.ID, text)
	if !handled {
		return nil
	}
	if reply.Prompt != "" {
		return c.Send(reply.Prompt)
	}
	return h.sendCreated(c, reply.Created, reply.Err)
}

func (h *ReminderHandler) handleStartCommand(c tele.Context) error {
	tz, err := h.reminderService.GetTimezone(context.Background(), c.Chat().ID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", c.Chat().ID).Msg("failed to load timezone")
	}

	greeting := "👋 Привет! Чем помочь?\n"
	if tz != "" {
		greeting += "Твой часовой пояс - " + tz
	} else {
		greeting += "Установи свой часовой пояс с помощью кнопки в меню, чтобы напоминания корректно работали"
	}
	return c.Send(greeting, mainMenu())
}

func (h *ReminderHandler) handleRemindCommand(c tele.Context, args string) error {
	if args == "" {
		return c.Send(`Используйте формат: /напомни {текст с датой}, например "/напомни завтра в 10 утра купить кофе"`)
	}
	created, err := h.reminderService.CreateReminder(context.Background(), c.Chat().ID, args, "")
	return h.sendCreated(c, &created, err)
}

func (h *ReminderHandler) sendCreated(c tele.Context, created *application.Created, err error) error {
	switch {
	case err == nil:
		return c.Send(fmt.Sprintf("✅ Запомнил. ID: %d, задача: \"%s\" в %s (%s)",
			created.Reminder.ID, created.Reminder.Task, created.LocalTime().Format(displayLayout), created.Timezone))
	case errors.Is(err, domain.ErrNoExpression):
		return c.Send(`⛔️ Не смог распознать дату. Примеры: "завтра в 10 утра", "25 августа в 18:00"`)
	case errors.Is(err, domain.ErrEmptyTask):
		return c.Send(`⛔️ Не понял, о чем напомнить. Пример: /напомни купить хлеб через 15 минут`)
	case errors.Is(err, domain.ErrPastOrInvalid):
		return c.Send("⛔️ Время указано некорректно или в прошлом.")
	default:
		log.Error().Err(err).Int64("chat_id", c.Chat().ID).Msg("failed to create reminder")
		return c.Send("Ошибка при создании напоминания.")
	}
}

func (h *ReminderHandler) handleListCommand(c tele.Context) error {
	ctx := context.Background()
	chatID := c.Chat().ID

	reminders, err := h.reminderService.GetReminders(ctx, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to list reminders")
		return c.Send("Ошибка при получении напоминаний.")
	}
	if len(reminders) == 0 {
		return c.Send("🕳 Нет активных напоминаний")
	}

	tz, err := h.reminderService.GetTimezone(ctx, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to load timezone")
	}
	return c.Send(formatReminderList(reminders, tz))
}

func formatReminderList(reminders []domain.Reminder, tz string) string {
	loc := domain.LoadLocation(tz)

	var b strings.Builder
	b.WriteString("📋 Ваши напоминания:\n\n")
	for i, r := range reminders {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "🕑 id: %d %s — %s", r.ID, r.Time().In(loc).Format(displayLayout), r.Task)
	}
	fmt.Fprintf(&b, "\n\nЧасовой пояс: %s", domain.TimezoneName(tz))
	return b.String()
}

func (h *ReminderHandler) handleCancelCommand(c tele.Context, args string) error {
	if args == "" {
		return c.Send("Используйте формат: /отмена ID")
	}
	// ID - первое слово после команды
	id, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	if err != nil {
		return c.Send("Неверный формат ID.")
	}

	reminder, err := h.reminderService.CancelReminder(context.Background(), c.Chat().ID, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Send("Напоминание с таким ID не найдено.")
	case err != nil:
		log.Error().Err(err).Int64("chat_id", c.Chat().ID).Int64("id", id).Msg("failed to cancel reminder")
		return c.Send("Ошибка при удалении напоминания.")
	}
	return c.Send("Забыли про " + reminder.Task)
}

func (h *ReminderHandler) handleTimezoneCommand(c tele.Context, args string) error {
	ctx := context.Background()
	chatID := c.Chat().ID

	if args == "" {
		tz, err := h.reminderService.GetTimezone(ctx, chatID)
		if err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to load timezone")
		}
		return c.Send(fmt.Sprintf("Текущий часовой пояс: %s\nИспользуйте формат: /пояс Europe/Moscow", domain.TimezoneName(tz)))
	}

	tz := strings.Fields(args)[0]
	err := h.reminderService.SetTimezone(ctx, chatID, tz)
	switch {
	case errors.Is(err, domain.ErrInvalidTimezone):
		return c.Send(fmt.Sprintf("⚠️ Неизвестный часовой пояс: %s. Пример: /пояс Europe/Moscow", tz))
	case err != nil:
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to store timezone")
		return c.Send("Ошибка при сохранении часового пояса.")
	}
	return c.Send("✅ Часовой пояс установлен: " + tz)
}

func (h *ReminderHandler) handleHelpCommand(c tele.Context) error {
	return c.Send(helpMessage)
}

func (h *ReminderHandler) onLocation(c tele.Context) error {
	loc := c.Message().Location
	if loc == nil {
		return nil
	}

	tz, err := h.reminderService.LocateTimezone(context.Background(), c.Chat().ID, float64(loc.Lat), float64(loc.Lng))
	if err != nil {
		if !errors.Is(err, domain.ErrTimezoneLookup) {
			log.Error().Err(err).Int64("chat_id", c.Chat().ID).Msg("failed to store timezone")
		}
		return c.Send("⚠️ Не удалось определить часовой пояс.")
	}
	return c.Send("✅ Часовой пояс установлен: "+tz, mainMenu())
}

func (h *ReminderHandler) onCalendar(c tele.Context) error {
	action, value := parseCalendarData(c.Callback().Data)

	switch action {
	case calendarNav:
		month, err := time.Parse(calendarMonthLayout, value)
		if err != nil {
			return c.Respond()
		}
		if err := c.Respond(); err != nil {
			return err
		}
		return c.Edit("Выберите день:", calendarMarkup(month))
	case calendarDay:
		if _, err := time.Parse(application.CalendarDateLayout, value); err != nil {
			return c.Respond()
		}
		if err := c.Respond(&tele.CallbackResponse{Text: value}); err != nil {
			return err
		}
		return c.Send(h.conversation.Begin(senderID(c), value))
	default:
		return c.Respond()
	}
}

// parseCommand splits "/cmd@bot args". ok is false for commands addressed to
// another bot.
func parseCommand(text, botUsername string) (cmd, args string, ok bool) {
	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i:]
	}
	// Удаляем упоминание бота в команде (если оно есть)
	if name, target, found := strings.Cut(head, "@"); found {
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			return "", "", false
		}
		head = name
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return c.Chat().ID
}
