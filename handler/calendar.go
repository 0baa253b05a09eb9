package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"TelegramBotReminder/application"
)

const (
	calendarUnique = "cal"

	calendarDay  = "day"
	calendarNav  = "nav"
	calendarNoop = "noop"

	calendarMonthLayout = "2006-01"
)

var monthTitles = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var weekdayTitles = [...]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// calendarMarkup renders an inline month grid, weeks starting on Monday.
// Day buttons carry the date in application.CalendarDateLayout.
func calendarMarkup(month time.Time) *tele.ReplyMarkup {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	markup := &tele.ReplyMarkup{}
	noop := func(text string) tele.Btn {
		return markup.Data(text, calendarUnique, calendarNoop)
	}

	rows := []tele.Row{
		markup.Row(noop(fmt.Sprintf("%s %d", monthTitles[first.Month()-1], first.Year()))),
	}

	header := make([]tele.Btn, 0, len(weekdayTitles))
	for _, wd := range weekdayTitles {
		header = append(header, noop(wd))
	}
	rows = append(rows, markup.Row(header...))

	// Monday = 0
	offset := (int(first.Weekday()) + 6) % 7
	days := first.AddDate(0, 1, -1).Day()

	week := make([]tele.Btn, 0, 7)
	for i := 0; i < offset; i++ {
		week = append(week, noop(" "))
	}
	for d := 1; d <= days; d++ {
		date := time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
		week = append(week, markup.Data(strconv.Itoa(d), calendarUnique, calendarDay, date.Format(application.CalendarDateLayout)))
		if len(week) == 7 {
			rows = append(rows, markup.Row(week...))
			week = make([]tele.Btn, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, noop(" "))
		}
		rows = append(rows, markup.Row(week...))
	}

	rows = append(rows, markup.Row(
		markup.Data("«", calendarUnique, calendarNav, first.AddDate(0, -1, 0).Format(calendarMonthLayout)),
		markup.Data("»", calendarUnique, calendarNav, first.AddDate(0, 1, 0).Format(calendarMonthLayout)),
	))

	markup.Inline(rows...)
	return markup
}

// parseCalendarData splits callback data such as "day|15-06-2024".
func parseCalendarData(data string) (action, value string) {
	action, value, _ = strings.Cut(data, "|")
	return action, value
}
