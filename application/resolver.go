package application

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"TelegramBotReminder/domain"
	"TelegramBotReminder/infrastructure/rutime"
)

// CalendarDateLayout is the form the calendar widget hands dates over in.
const CalendarDateLayout = "02-01-2006"

// ExpressionParser finds the first date/time expression in free text.
type ExpressionParser interface {
	Parse(text string, ref time.Time, anchor *time.Time) *rutime.Result
}

type ResolveRequest struct {
	Text     string
	Timezone string
	// Date is an optional DD-MM-YYYY calendar date that fixes the day; Text then
	// only has to carry the time of day and the task.
	Date string
}

type Resolution struct {
	Instant  time.Time
	Task     string
	Location *time.Location
}

type Resolver struct {
	parser ExpressionParser
	now    func() time.Time
}

func NewResolver(parser ExpressionParser) *Resolver {
	return &Resolver{parser: parser, now: time.Now}
}

// Resolve turns text into an absolute instant and the leftover task.
func (r *Resolver) Resolve(req ResolveRequest) (Resolution, error) {
	loc := domain.LoadLocation(req.Timezone)
	now := r.now().In(loc)

	var anchor *time.Time
	if req.Date != "" {
		d, err := time.ParseInLocation(CalendarDateLayout, strings.TrimSpace(req.Date), loc)
		if err != nil {
			return Resolution{}, errors.Wrapf(domain.ErrPastOrInvalid, "calendar date %q", req.Date)
		}
		anchor = &d
	}

	res := r.parser.Parse(req.Text, now, anchor)
	if res == nil {
		return Resolution{}, domain.ErrNoExpression
	}

	task := res.Remainder(req.Text)
	if task == "" {
		return Resolution{}, domain.ErrEmptyTask
	}

	if res.Time.IsZero() || !res.Time.After(now) {
		return Resolution{}, domain.ErrPastOrInvalid
	}

	return Resolution{Instant: res.Time.UTC(), Task: task, Location: loc}, nil
}
