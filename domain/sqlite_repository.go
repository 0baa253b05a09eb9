package domain

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS reminders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		task TEXT NOT NULL,
		remind_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_chat_id ON reminders (chat_id, remind_at)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		chat_id INTEGER PRIMARY KEY,
		timezone TEXT
	)`,
}

// SQLiteReminderRepository keeps reminders in the same two-table layout the bot has
// always used. AUTOINCREMENT guarantees ids are never reused.
type SQLiteReminderRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLiteReminderRepository creates the schema if needed. The caller is expected to
// limit db to a single open connection so writes are serialized.
func NewSQLiteReminderRepository(ctx context.Context, db *sql.DB, timeout time.Duration) (*SQLiteReminderRepository, error) {
	r := &SQLiteReminderRepository{db: db, timeout: timeout}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, NewStorageError("migrate", err)
		}
	}
	return r, nil
}

func (r *SQLiteReminderRepository) AddReminder(ctx context.Context, chatID int64, task string, remindAt int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (chat_id, task, remind_at) VALUES (?, ?, ?)`,
		chatID, task, remindAt)
	if err != nil {
		return 0, NewStorageError("insert reminder", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, NewStorageError("insert reminder", err)
	}
	return id, nil
}

func (r *SQLiteReminderRepository) GetReminders(ctx context.Context, chatID *int64) ([]Reminder, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	where, args := []string{"1 = 1"}, []any{}
	if chatID != nil {
		where, args = append(where, "chat_id = ?"), append(args, *chatID)
	}
	query := `SELECT id, chat_id, task, remind_at FROM reminders WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY remind_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("select reminders", err)
	}
	defer rows.Close()

	reminders := make([]Reminder, 0)
	for rows.Next() {
		var rem Reminder
		if err := rows.Scan(&rem.ID, &rem.ChatID, &rem.Task, &rem.RemindAt); err != nil {
			return nil, NewStorageError("scan reminder", err)
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("select reminders", err)
	}
	return reminders, nil
}

func (r *SQLiteReminderRepository) DeleteReminder(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	return NewStorageError("delete reminder", err)
}

func (r *SQLiteReminderRepository) GetUserTimezone(ctx context.Context, chatID int64) (string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var tz sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT timezone FROM user_preferences WHERE chat_id = ?`, chatID).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", NewStorageError("select user timezone", err)
	}
	return tz.String, nil
}

func (r *SQLiteReminderRepository) SetUserTimezone(ctx context.Context, chatID int64, timezone string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_preferences (chat_id, timezone) VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET timezone = excluded.timezone`,
		chatID, timezone)
	return NewStorageError("upsert user timezone", err)
}

func (r *SQLiteReminderRepository) Close() error {
	return r.db.Close()
}
