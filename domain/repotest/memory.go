package repotest

import (
	"context"
	"sort"
	"sync"

	"TelegramBotReminder/domain"
)

// MemoryRepository is an in-process domain.ReminderRepository for tests of the
// packages built on top of the store.
type MemoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	reminders map[int64]domain.Reminder
	timezones map[int64]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		reminders: make(map[int64]domain.Reminder),
		timezones: make(map[int64]string),
	}
}

func (r *MemoryRepository) AddReminder(_ context.Context, chatID int64, task string, remindAt int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.reminders[r.nextID] = domain.Reminder{
		ID:       r.nextID,
		ChatID:   chatID,
		Task:     task,
		RemindAt: remindAt,
	}
	return r.nextID, nil
}

func (r *MemoryRepository) GetReminders(_ context.Context, chatID *int64) ([]domain.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Reminder, 0, len(r.reminders))
	for _, rem := range r.reminders {
		if chatID != nil && rem.ChatID != *chatID {
			continue
		}
		result = append(result, rem)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RemindAt != result[j].RemindAt {
			return result[i].RemindAt < result[j].RemindAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *MemoryRepository) DeleteReminder(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reminders, id)
	return nil
}

func (r *MemoryRepository) GetUserTimezone(_ context.Context, chatID int64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timezones[chatID], nil
}

func (r *MemoryRepository) SetUserTimezone(_ context.Context, chatID int64, timezone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timezones[chatID] = timezone
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

// Len returns the number of stored reminders.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reminders)
}
