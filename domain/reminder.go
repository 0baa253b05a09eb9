package domain

import (
	"time"
)

// Reminder is a one-shot notification for a chat.
// RemindAt is stored as epoch milliseconds in UTC.
type Reminder struct {
	ID       int64  `bson:"_id" json:"id"`
	ChatID   int64  `bson:"chat_id" json:"chat_id"`
	Task     string `bson:"task" json:"task"`
	RemindAt int64  `bson:"remind_at" json:"remind_at"`
}

func NewReminder(chatID int64, task string, remindAt time.Time) Reminder {
	return Reminder{
		ChatID:   chatID,
		Task:     task,
		RemindAt: remindAt.UnixMilli(),
	}
}

// Time returns the instant the reminder is due.
func (r Reminder) Time() time.Time {
	return time.UnixMilli(r.RemindAt).UTC()
}

// UserPreference holds per-chat settings. An empty Timezone means UTC.
type UserPreference struct {
	ChatID   int64  `bson:"_id" json:"chat_id"`
	Timezone string `bson:"timezone" json:"timezone"`
}

// DefaultTimezone is used when a chat has no timezone on record.
const DefaultTimezone = "UTC"

// LoadLocation resolves an IANA timezone id, falling back to UTC for empty or unknown ids.
func LoadLocation(tz string) *time.Location {
	if tz == "" || tz == DefaultTimezone {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TimezoneName returns tz, or DefaultTimezone when tz is empty.
func TimezoneName(tz string) string {
	if tz == "" {
		return DefaultTimezone
	}
	return tz
}
