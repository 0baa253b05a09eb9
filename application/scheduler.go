package application

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"TelegramBotReminder/domain"
)

// Notifier sends a text message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// NotificationText is what the chat receives when a reminder fires.
func NotificationText(task string) string {
	return "🔔 Напоминаю: " + task
}

type pendingTimer struct {
	timer *time.Timer
}

// Scheduler keeps one timer per undelivered reminder. A fired or cancelled
// reminder is always removed from the repository as well.
type Scheduler struct {
	repository      domain.ReminderRepository
	notifier        Notifier
	logger          zerolog.Logger
	deliveryTimeout time.Duration
	now             func() time.Time

	mu      sync.Mutex
	timers  map[int64]*pendingTimer
	stopped bool
	firing  sync.WaitGroup
}

func NewScheduler(repository domain.ReminderRepository, notifier Notifier, logger zerolog.Logger, deliveryTimeout time.Duration) *Scheduler {
	return &Scheduler{
		repository:      repository,
		notifier:        notifier,
		logger:          logger.With().Str("component", "scheduler").Logger(),
		deliveryTimeout: deliveryTimeout,
		now:             time.Now,
		timers:          make(map[int64]*pendingTimer),
	}
}

// ScheduleReminder arms a timer for r. A reminder that is already due is deleted
// without delivery. Scheduling an id that is already armed does nothing.
func (s *Scheduler) ScheduleReminder(ctx context.Context, r domain.Reminder) error {
	delay := r.Time().Sub(s.now())
	if delay <= 0 {
		remindersDroppedTotal.Inc()
		s.logger.Info().Int64("id", r.ID).Int64("chat_id", r.ChatID).Dur("late", -delay).Msg("dropping missed reminder")
		return errors.Wrapf(s.repository.DeleteReminder(ctx, r.ID), "drop reminder %d", r.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.New("scheduler stopped")
	}
	if _, ok := s.timers[r.ID]; ok {
		return nil
	}

	p := &pendingTimer{}
	p.timer = time.AfterFunc(delay, func() { s.fire(r, p) })
	s.timers[r.ID] = p
	remindersScheduledTotal.Inc()
	remindersPending.Set(float64(len(s.timers)))

	s.logger.Debug().Int64("id", r.ID).Time("remind_at", r.Time()).Msg("reminder armed")
	return nil
}

// Reconcile arms timers for every stored reminder. It must run before the bot
// starts accepting messages.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	reminders, err := s.repository.GetReminders(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "load reminders")
	}

	for _, r := range reminders {
		if err := s.ScheduleReminder(ctx, r); err != nil {
			return err
		}
	}

	s.logger.Info().Int("stored", len(reminders)).Int("armed", s.Pending()).Msg("reminders reconciled")
	return nil
}

// CancelReminder stops the timer, if armed, and deletes the row. Cancelling an
// id that already fired or was cancelled only repeats the idempotent delete.
func (s *Scheduler) CancelReminder(ctx context.Context, id int64) error {
	s.mu.Lock()
	if p, ok := s.timers[id]; ok {
		p.timer.Stop()
		delete(s.timers, id)
		remindersCancelledTotal.Inc()
		remindersPending.Set(float64(len(s.timers)))
	}
	s.mu.Unlock()

	return errors.Wrapf(s.repository.DeleteReminder(ctx, id), "cancel reminder %d", id)
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms all timers and waits for deliveries already in progress.
// Stored reminders are kept and picked up by the next Reconcile.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, id)
	}
	remindersPending.Set(0)
	s.mu.Unlock()

	s.firing.Wait()
}

func (s *Scheduler) fire(r domain.Reminder, p *pendingTimer) {
	// only the goroutine that takes the handle out of the map delivers
	s.mu.Lock()
	if cur, ok := s.timers[r.ID]; !ok || cur != p || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, r.ID)
	remindersPending.Set(float64(len(s.timers)))
	s.firing.Add(1)
	s.mu.Unlock()
	defer s.firing.Done()

	logger := s.logger.With().Int64("id", r.ID).Int64("chat_id", r.ChatID).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), s.deliveryTimeout)
	err := s.notifier.Notify(ctx, r.ChatID, NotificationText(r.Task))
	cancel()
	if err != nil {
		remindersDeliveredTotal.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("reminder delivery failed")
	} else {
		remindersDeliveredTotal.WithLabelValues("ok").Inc()
		logger.Info().Msg("reminder delivered")
	}

	ctx, cancel = context.WithTimeout(context.Background(), s.deliveryTimeout)
	defer cancel()
	if err := s.repository.DeleteReminder(ctx, r.ID); err != nil {
		logger.Error().Err(err).Msg("failed to delete delivered reminder")
	}
}
