// Package repotest holds a compliance suite shared by every domain.ReminderRepository.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TelegramBotReminder/domain"
)

// Run exercises repo implementations. newRepo must return an empty, isolated repository.
func Run(t *testing.T, newRepo func(t *testing.T) domain.ReminderRepository) {
	t.Helper()

	t.Run("add assigns unique increasing ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.AddReminder(ctx, 1, "купить кофе", at(10))
		require.NoError(t, err)
		second, err := repo.AddReminder(ctx, 1, "позвонить врачу", at(20))
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.Greater(t, second, first)
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.AddReminder(ctx, 1, "a", at(10))
		require.NoError(t, err)
		require.NoError(t, repo.DeleteReminder(ctx, first))

		second, err := repo.AddReminder(ctx, 1, "b", at(10))
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("get filters by chat and orders by time", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		late, err := repo.AddReminder(ctx, 1, "late", at(30))
		require.NoError(t, err)
		early, err := repo.AddReminder(ctx, 1, "early", at(10))
		require.NoError(t, err)
		_, err = repo.AddReminder(ctx, 2, "other chat", at(20))
		require.NoError(t, err)

		chatID := int64(1)
		mine, err := repo.GetReminders(ctx, &chatID)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, early, mine[0].ID)
		assert.Equal(t, late, mine[1].ID)
		assert.Equal(t, "early", mine[0].Task)
		assert.Equal(t, at(10), mine[0].RemindAt)
		assert.Equal(t, int64(1), mine[0].ChatID)

		all, err := repo.GetReminders(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("get on empty chat returns no reminders", func(t *testing.T) {
		repo := newRepo(t)
		chatID := int64(42)
		got, err := repo.GetReminders(context.Background(), &chatID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.AddReminder(ctx, 1, "a", at(10))
		require.NoError(t, err)

		require.NoError(t, repo.DeleteReminder(ctx, id))
		require.NoError(t, repo.DeleteReminder(ctx, id))
		require.NoError(t, repo.DeleteReminder(ctx, 999))

		all, err := repo.GetReminders(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("timezone upsert", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		tz, err := repo.GetUserTimezone(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, tz)

		require.NoError(t, repo.SetUserTimezone(ctx, 7, "Europe/Moscow"))
		tz, err = repo.GetUserTimezone(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Europe/Moscow", tz)

		require.NoError(t, repo.SetUserTimezone(ctx, 7, "Asia/Yekaterinburg"))
		tz, err = repo.GetUserTimezone(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Asia/Yekaterinburg", tz)

		tz, err = repo.GetUserTimezone(ctx, 8)
		require.NoError(t, err)
		assert.Empty(t, tz)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const n = 20
		ids := make(chan int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, err := repo.AddReminder(ctx, int64(i%3), "task", at(i+1))
				assert.NoError(t, err)
				ids <- id
			}(i)
		}
		wg.Wait()
		close(ids)

		seen := make(map[int64]bool)
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, n)

		all, err := repo.GetReminders(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, n)
	})
}

func at(minutes int) int64 {
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(minutes) * time.Minute).UnixMilli()
}
