package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"TelegramBotReminder/domain"
)

// TimezoneLocator maps coordinates to an IANA timezone id.
type TimezoneLocator interface {
	Timezone(ctx context.Context, lat, lng float64) (string, error)
}

type ReminderService struct {
	repository domain.ReminderRepository
	resolver   *Resolver
	scheduler  *Scheduler
	locator    TimezoneLocator
	logger     zerolog.Logger
}

func NewReminderService(repository domain.ReminderRepository, resolver *Resolver, scheduler *Scheduler, locator TimezoneLocator, logger zerolog.Logger) *ReminderService {
	return &ReminderService{
		repository: repository,
		resolver:   resolver,
		scheduler:  scheduler,
		locator:    locator,
		logger:     logger.With().Str("component", "reminder_service").Logger(),
	}
}

// Created describes a stored reminder and the timezone it was read in.
type Created struct {
	Reminder domain.Reminder
	Timezone string
	Location *time.Location
}

// LocalTime is the due time on the wall clock the user wrote it in.
func (c Created) LocalTime() time.Time {
	return c.Reminder.Time().In(c.Location)
}

// CreateReminder resolves text in the chat's timezone, stores the reminder and arms
// its timer. date is an optional DD-MM-YYYY calendar date.
func (s *ReminderService) CreateReminder(ctx context.Context, chatID int64, text, date string) (Created, error) {
	tz, err := s.repository.GetUserTimezone(ctx, chatID)
	if err != nil {
		return Created{}, errors.Wrap(err, "load timezone")
	}
	tz = domain.TimezoneName(tz)

	res, err := s.resolver.Resolve(ResolveRequest{Text: text, Timezone: tz, Date: date})
	if err != nil {
		resolveFailuresTotal.WithLabelValues(resolveFailureReason(err)).Inc()
		return Created{}, err
	}

	reminder := domain.NewReminder(chatID, res.Task, res.Instant)
	reminder.ID, err = s.repository.AddReminder(ctx, reminder.ChatID, reminder.Task, reminder.RemindAt)
	if err != nil {
		return Created{}, errors.Wrap(err, "store reminder")
	}

	if err := s.scheduler.ScheduleReminder(ctx, reminder); err != nil {
		// Откатываем запись, иначе напоминание сработает после перезапуска
		if delErr := s.repository.DeleteReminder(ctx, reminder.ID); delErr != nil {
			s.logger.Error().Err(delErr).Int64("id", reminder.ID).Msg("failed to roll back reminder")
		}
		return Created{}, errors.Wrap(err, "schedule reminder")
	}

	s.logger.Info().
		Int64("id", reminder.ID).
		Int64("chat_id", chatID).
		Time("remind_at", res.Instant).
		Str("timezone", tz).
		Msg("reminder created")

	return Created{Reminder: reminder, Timezone: tz, Location: res.Location}, nil
}

func (s *ReminderService) GetReminders(ctx context.Context, chatID int64) ([]domain.Reminder, error) {
	reminders, err := s.repository.GetReminders(ctx, &chatID)
	return reminders, errors.Wrap(err, "list reminders")
}

// CancelReminder removes a reminder owned by chatID. Ids of other chats are
// reported as domain.ErrNotFound and left untouched.
func (s *ReminderService) CancelReminder(ctx context.Context, chatID, id int64) (domain.Reminder, error) {
	reminders, err := s.repository.GetReminders(ctx, &chatID)
	if err != nil {
		return domain.Reminder{}, errors.Wrap(err, "list reminders")
	}

	// Ищем только среди напоминаний этого чата
	for _, r := range reminders {
		if r.ID != id {
			continue
		}
		if err := s.scheduler.CancelReminder(ctx, id); err != nil {
			return domain.Reminder{}, err
		}
		s.logger.Info().Int64("id", id).Int64("chat_id", chatID).Msg("reminder cancelled")
		return r, nil
	}
	return domain.Reminder{}, domain.ErrNotFound
}

// GetTimezone returns the chat's timezone id, or "" when none is on record.
func (s *ReminderService) GetTimezone(ctx context.Context, chatID int64) (string, error) {
	tz, err := s.repository.GetUserTimezone(ctx, chatID)
	return tz, errors.Wrap(err, "load timezone")
}

func (s *ReminderService) SetTimezone(ctx context.Context, chatID int64, tz string) error {
	if tz == "" || tz == "Local" {
		return errors.Wrapf(domain.ErrInvalidTimezone, "%q", tz)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return errors.Wrapf(domain.ErrInvalidTimezone, "%q", tz)
	}

	if err := s.repository.SetUserTimezone(ctx, chatID, tz); err != nil {
		return errors.Wrap(err, "store timezone")
	}
	s.logger.Info().Int64("chat_id", chatID).Str("timezone", tz).Msg("timezone set")
	return nil
}

// LocateTimezone looks up the timezone at the given coordinates and stores it.
// A failed lookup leaves the stored preference unchanged.
func (s *ReminderService) LocateTimezone(ctx context.Context, chatID int64, lat, lng float64) (string, error) {
	tz, err := s.locator.Timezone(ctx, lat, lng)
	if err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("timezone lookup failed")
		if errors.Is(err, domain.ErrTimezoneLookup) {
			return "", err
		}
		return "", errors.Wrap(domain.ErrTimezoneLookup, err.Error())
	}

	if err := s.SetTimezone(ctx, chatID, tz); err != nil {
		if errors.Is(err, domain.ErrInvalidTimezone) {
			return "", errors.Wrap(domain.ErrTimezoneLookup, err.Error())
		}
		return "", err
	}
	return tz, nil
}

// Start rebuilds timers from the repository.
func (s *ReminderService) Start(ctx context.Context) error {
	return s.scheduler.Reconcile(ctx)
}

func resolveFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoExpression):
		return "no_expression"
	case errors.Is(err, domain.ErrEmptyTask):
		return "empty_task"
	case errors.Is(err, domain.ErrPastOrInvalid):
		return "past_or_invalid"
	default:
		return "other"
	}
}
