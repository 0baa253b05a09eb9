package rutime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Boundaries consume one character, so find searches a copy of the text with a
// leading space and resumes inside a rejected match.
const (
	pre  = `[^\p{L}\p{N}]`
	post = `(?:$|[^\p{L}\p{N}])`
)

const (
	priorityClock = iota
	priorityHour
	priorityPeriod
	priorityDate
)

// rule finds the first acceptable occurrence of one kind of expression.
// Capture group 1 of re is always the span that belongs to the expression.
type rule struct {
	re       *regexp.Regexp
	priority int
	build    func(groups []string) (func(*components), bool)
}

type match struct {
	left, right int
	priority    int
	apply       func(*components)
}

func (r rule) find(text string) *match {
	padded := " " + text
	for pos := 0; pos < len(padded); {
		idx := r.re.FindStringSubmatchIndex(padded[pos:])
		if idx == nil {
			return nil
		}
		groups := make([]string, len(idx)/2)
		for i := range groups {
			if idx[2*i] >= 0 {
				groups[i] = padded[pos+idx[2*i] : pos+idx[2*i+1]]
			}
		}
		if apply, ok := r.build(groups); ok {
			return &match{left: pos + idx[2] - 1, right: pos + idx[3] - 1, priority: r.priority, apply: apply}
		}
		pos += idx[2]
	}
	return nil
}

func defaultRules() []rule {
	return []rule{
		clockRule(),
		hourRule(),
		periodRule(),
		relativeDayRule(),
		offsetRule(),
		numericDateRule(),
		monthDateRule(),
		weekdayRule(),
	}
}

// 21:00, в 10:30, к 9:15 вечера
func clockRule() rule {
	return rule{
		re: regexp.MustCompile(`(?i)` + pre +
			`((?:(?:в|во|к|на)\s+)?([01]?\d|2[0-3]):([0-5]\d)(?:\s+(утра|дня|вечера|ночи))?)` + post),
		priority: priorityClock,
		build: func(g []string) (func(*components), bool) {
			hour, _ := strconv.Atoi(g[2])
			minute, _ := strconv.Atoi(g[3])
			meridiem := strings.ToLower(g[4])
			if meridiem == "утра" && hour > 12 {
				return nil, false
			}
			return func(c *components) {
				if c.clock == nil {
					c.clock = &clock{hour: hour, minute: minute, meridiem: meridiem}
				}
			}, true
		},
	}
}

// в 10, в 10 утра, 5 вечера, в 10 часов вечера. A bare number is not a time,
// and "2 дня" without a preposition reads as a count of days.
func hourRule() rule {
	return rule{
		re: regexp.MustCompile(`(?i)` + pre +
			`((?:(в|к)\s+)?(\d{1,2})(?:\s*(?:часов|часа|час|ч))?(?:\s+(утра|дня|вечера|ночи))?)` +
			`(?:$|[^\p{L}\p{N}:./\-])`),
		priority: priorityHour,
		build: func(g []string) (func(*components), bool) {
			prep, meridiem := g[2], strings.ToLower(g[4])
			if prep == "" && (meridiem == "" || meridiem == "дня") {
				return nil, false
			}
			hour, _ := strconv.Atoi(g[3])
			if hour > 23 || (meridiem == "утра" && hour > 12) {
				return nil, false
			}
			return func(c *components) {
				if c.clock == nil {
					c.clock = &clock{hour: hour, meridiem: meridiem}
				}
			}, true
		},
	}
}

var periodHours = map[string]int{
	"утром":   9,
	"днём":    14,
	"днем":    14,
	"вечером": 19,
	"ночью":   22,
}

var periodMeridiem = map[string]string{
	"утром":   "утра",
	"днём":    "дня",
	"днем":    "дня",
	"вечером": "вечера",
	"ночью":   "ночи",
}

func periodRule() rule {
	return rule{
		re:       regexp.MustCompile(`(?i)` + pre + `(утром|днём|днем|вечером|ночью|в\s+полдень|в\s+полночь)` + post),
		priority: priorityPeriod,
		build: func(g []string) (func(*components), bool) {
			word := strings.ToLower(g[1])
			if strings.HasSuffix(word, "полдень") || strings.HasSuffix(word, "полночь") {
				hour := 12
				if strings.HasSuffix(word, "полночь") {
					hour = 0
				}
				return func(c *components) {
					if c.clock == nil {
						c.clock = &clock{hour: hour}
					}
				}, true
			}
			return func(c *components) { c.period = word }, true
		},
	}
}

var relativeDays = map[string]int{
	"сегодня":     0,
	"завтра":      1,
	"послезавтра": 2,
}

func relativeDayRule() rule {
	return rule{
		re:       regexp.MustCompile(`(?i)` + pre + `(послезавтра|завтра|сегодня)` + post),
		priority: priorityDate,
		build: func(g []string) (func(*components), bool) {
			shift := relativeDays[strings.ToLower(g[1])]
			return func(c *components) {
				c.relative = true
				c.dayShift += shift
			}, true
		},
	}
}

// через 15 минут, через час, через полчаса, через 2 недели
func offsetRule() rule {
	return rule{
		re: regexp.MustCompile(`(?i)` + pre +
			`(через\s+(?:(полчаса|полтора\s+часа)|(\d+)?\s*(минуту|минуты|минут|мин|часа|часов|час|дня|дней|день|неделю|недели|недель|месяца|месяцев|месяц)))` + post),
		priority: priorityDate,
		build: func(g []string) (func(*components), bool) {
			switch strings.ToLower(strings.Join(strings.Fields(g[2]), " ")) {
			case "полчаса":
				return func(c *components) { c.offset += 30 * time.Minute }, true
			case "полтора часа":
				return func(c *components) { c.offset += 90 * time.Minute }, true
			}

			n := 1
			if g[3] != "" {
				v, err := strconv.Atoi(g[3])
				if err != nil || v <= 0 {
					return nil, false
				}
				n = v
			}

			unit := strings.ToLower(g[4])
			switch {
			case strings.HasPrefix(unit, "мин"):
				return func(c *components) { c.offset += time.Duration(n) * time.Minute }, true
			case strings.HasPrefix(unit, "час"):
				return func(c *components) { c.offset += time.Duration(n) * time.Hour }, true
			case strings.HasPrefix(unit, "недел"):
				return func(c *components) { c.dayShift += 7 * n; c.keepClock = true }, true
			case strings.HasPrefix(unit, "месяц"):
				return func(c *components) { c.monthShift += n; c.keepClock = true }, true
			default:
				return func(c *components) { c.dayShift += n; c.keepClock = true }, true
			}
		},
	}
}

// 15-06-2024, 15.06.2024, 15/06/24, 15.06
func numericDateRule() rule {
	return rule{
		re: regexp.MustCompile(pre +
			`((\d{1,2})[.\-/](\d{1,2})(?:[.\-/](\d{4}|\d{2}))?)` + post),
		priority: priorityDate,
		build: func(g []string) (func(*components), bool) {
			day, _ := strconv.Atoi(g[2])
			month, _ := strconv.Atoi(g[3])
			if day < 1 || day > 31 || month < 1 || month > 12 {
				return nil, false
			}
			d := calendarDate{day: day, month: time.Month(month)}
			if g[4] != "" {
				year, _ := strconv.Atoi(g[4])
				if len(g[4]) == 2 {
					year += 2000
				}
				d.year, d.hasYear = year, true
			}
			return func(c *components) {
				if c.date == nil {
					c.date = &d
				}
			}, true
		},
	}
}

var monthPrefixes = map[string]time.Month{
	"янв": time.January,
	"фев": time.February,
	"мар": time.March,
	"апр": time.April,
	"май": time.May,
	"мая": time.May,
	"июн": time.June,
	"июл": time.July,
	"авг": time.August,
	"сен": time.September,
	"окт": time.October,
	"ноя": time.November,
	"дек": time.December,
}

const monthNames = `января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря|` +
	`январь|февраль|март|апрель|май|июнь|июль|август|сентябрь|октябрь|ноябрь|декабрь|` +
	`янв|фев|мар|апр|июн|июл|авг|сент|сен|окт|ноя|дек`

// 25 августа, 1 янв 2025, 3 марта 2025 года
func monthDateRule() rule {
	return rule{
		re: regexp.MustCompile(`(?i)` + pre +
			`((\d{1,2})\s+(` + monthNames + `)\.?(?:\s+(20\d{2})(?:\s*(?:года|год|г\.?))?)?)` + post),
		priority: priorityDate,
		build: func(g []string) (func(*components), bool) {
			day, _ := strconv.Atoi(g[2])
			month, ok := monthPrefixes[firstRunes(strings.ToLower(g[3]), 3)]
			if !ok || day < 1 || day > 31 {
				return nil, false
			}
			d := calendarDate{day: day, month: month}
			if g[4] != "" {
				d.year, _ = strconv.Atoi(g[4])
				d.hasYear = true
			}
			return func(c *components) {
				if c.date == nil {
					c.date = &d
				}
			}, true
		},
	}
}

var weekdayPrefixes = map[string]time.Weekday{
	"пон": time.Monday,
	"вто": time.Tuesday,
	"сре": time.Wednesday,
	"чет": time.Thursday,
	"пят": time.Friday,
	"суб": time.Saturday,
	"вос": time.Sunday,
}

func weekdayRule() rule {
	return rule{
		re: regexp.MustCompile(`(?i)` + pre +
			`((?:(?:в|во)\s+)?(понедельник|вторник|среду|среда|четверг|пятницу|пятница|субботу|суббота|воскресенье))` + post),
		priority: priorityDate,
		build: func(g []string) (func(*components), bool) {
			wd, ok := weekdayPrefixes[firstRunes(strings.ToLower(g[2]), 3)]
			if !ok {
				return nil, false
			}
			return func(c *components) {
				if c.weekday == nil {
					c.weekday = &wd
				}
			}, true
		},
	}
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
