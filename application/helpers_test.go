package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"TelegramBotReminder/domain"
	"TelegramBotReminder/domain/repotest"
	"TelegramBotReminder/infrastructure/rutime"
)

// Friday, 2024-03-01 08:00 UTC
var refTime = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type sentMessage struct {
	chatID int64
	text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: text})
	return n.err
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

// countingRepository records deletions on top of the in-memory repository.
type countingRepository struct {
	*repotest.MemoryRepository

	mu      sync.Mutex
	deletes map[int64]int
}

func newCountingRepository() *countingRepository {
	return &countingRepository{
		MemoryRepository: repotest.NewMemoryRepository(),
		deletes:          make(map[int64]int),
	}
}

func (r *countingRepository) DeleteReminder(ctx context.Context, id int64) error {
	r.mu.Lock()
	r.deletes[id]++
	r.mu.Unlock()
	return r.MemoryRepository.DeleteReminder(ctx, id)
}

func (r *countingRepository) deleteCount(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deletes[id]
}

func (r *countingRepository) totalDeletes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.deletes {
		total += n
	}
	return total
}

type fakeLocator struct {
	tz  string
	err error
}

func (l fakeLocator) Timezone(context.Context, float64, float64) (string, error) {
	return l.tz, l.err
}

type serviceFixture struct {
	repo      *countingRepository
	notifier  *recordingNotifier
	scheduler *Scheduler
	service   *ReminderService
}

func newServiceFixture(t *testing.T, now time.Time, locator TimezoneLocator) *serviceFixture {
	t.Helper()

	repo := newCountingRepository()
	notifier := &recordingNotifier{}
	scheduler := NewScheduler(repo, notifier, zerolog.Nop(), time.Second)
	scheduler.now = fixedClock(now)
	resolver := NewResolver(rutime.New())
	resolver.now = fixedClock(now)
	t.Cleanup(scheduler.Stop)

	return &serviceFixture{
		repo:      repo,
		notifier:  notifier,
		scheduler: scheduler,
		service:   NewReminderService(repo, resolver, scheduler, locator, zerolog.Nop()),
	}
}

func (f *serviceFixture) stored(t *testing.T) []domain.Reminder {
	t.Helper()
	all, err := f.repo.GetReminders(context.Background(), nil)
	if err != nil {
		t.Fatalf("get reminders: %v", err)
	}
	return all
}
