package rutime

import (
	"time"
)

// defaultHour is used when a date is named without a time of day.
const defaultHour = 9

type calendarDate struct {
	year    int
	month   time.Month
	day     int
	hasYear bool
}

type clock struct {
	hour     int
	minute   int
	meridiem string // утра, дня, вечера, ночи or empty
}

// components accumulates what the matched rules contributed.
type components struct {
	date       *calendarDate
	weekday    *time.Weekday
	relative   bool // сегодня / завтра / послезавтра
	dayShift   int
	monthShift int
	keepClock  bool // через N дней keeps the current time of day
	offset     time.Duration
	clock      *clock
	period     string
}

func (c *components) hasDate() bool {
	return c.date != nil || c.weekday != nil || c.relative || c.dayShift != 0 || c.monthShift != 0
}

// undated reports whether no day was named besides сегодня.
func (c *components) undated() bool {
	return c.date == nil && c.weekday == nil && c.dayShift == 0 && c.monthShift == 0
}

func (c *components) resolve(ref time.Time, anchor *time.Time) (time.Time, bool) {
	loc := ref.Location()

	if anchor == nil && c.offset != 0 && c.clock == nil && c.period == "" && !c.hasDate() {
		return ref.Add(c.offset), true
	}

	y, m, d := ref.Date()
	switch {
	case anchor != nil:
		y, m, d = anchor.Date()
	case c.date != nil:
		var ok bool
		if y, m, d, ok = c.date.resolve(ref); !ok {
			return time.Time{}, false
		}
	case c.weekday != nil:
		d += (int(*c.weekday) - int(ref.Weekday()) + 7) % 7
	case c.dayShift != 0 || c.monthShift != 0:
		// noon avoids DST gaps while shifting whole days
		y, m, d = time.Date(y, m, d, 12, 0, 0, 0, loc).AddDate(0, c.monthShift, c.dayShift).Date()
	}

	hour, minute, second := defaultHour, 0, 0
	switch {
	case c.clock != nil:
		hour, minute = c.clock.resolve(c.period)
	case c.period != "":
		hour = periodHours[c.period]
	case c.keepClock && anchor == nil:
		hour, minute, second = ref.Clock()
	case c.offset != 0 && anchor != nil:
		// через 2 часа on a picked day counts from the current time of day
		hour, minute, second = ref.Clock()
	}

	t := time.Date(y, m, d, hour, minute, second, 0, loc)
	t = t.Add(c.offset)

	// a date-less midnight is the coming one
	if anchor == nil && c.clock != nil && c.offset == 0 && hour == 0 && minute == 0 && c.undated() {
		t = t.AddDate(0, 0, 1)
	}

	if c.weekday != nil && c.date == nil && anchor == nil && !t.After(ref) {
		t = t.AddDate(0, 0, 7)
	}
	return t, true
}

// resolve returns the calendar date, rolling a year-less date that already passed into
// next year. ok is false for dates that do not exist.
func (d calendarDate) resolve(ref time.Time) (int, time.Month, int, bool) {
	year := d.year
	if !d.hasYear {
		year = ref.Year()
		today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
		if time.Date(year, d.month, d.day, 0, 0, 0, 0, time.UTC).Before(today) {
			year++
		}
	}

	t := time.Date(year, d.month, d.day, 0, 0, 0, 0, time.UTC)
	if t.Day() != d.day || t.Month() != d.month {
		return 0, 0, 0, false
	}
	return year, d.month, d.day, true
}

// resolve applies the meridiem word, or the part of day when no meridiem was given.
func (c clock) resolve(period string) (int, int) {
	meridiem := c.meridiem
	if meridiem == "" {
		meridiem = periodMeridiem[period]
	}

	h := c.hour
	switch meridiem {
	case "утра":
		if h == 12 {
			h = 0
		}
	case "дня":
		if h >= 1 && h <= 6 {
			h += 12
		}
	case "вечера":
		if h < 12 {
			h += 12
		}
	case "ночи":
		switch {
		case h == 12:
			h = 0
		case h >= 6 && h < 12:
			h += 12
		}
	}
	return h, c.minute
}
