package domain

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReminderRepository is the durable store for reminders and per-chat timezones.
// Implementations must be safe for concurrent use.
type ReminderRepository interface {
	AddReminder(ctx context.Context, chatID int64, task string, remindAt int64) (int64, error)
	// GetReminders returns every reminder when chatID is nil.
	GetReminders(ctx context.Context, chatID *int64) ([]Reminder, error)
	// DeleteReminder is a no-op for unknown ids.
	DeleteReminder(ctx context.Context, id int64) error
	// GetUserTimezone returns "" when the chat has no timezone on record.
	GetUserTimezone(ctx context.Context, chatID int64) (string, error)
	SetUserTimezone(ctx context.Context, chatID int64, timezone string) error
	Close() error
}

const (
	remindersCollection   = "reminders"
	preferencesCollection = "user_preferences"
	countersCollection    = "counters"
)

type MongoReminderRepository struct {
	client      *mongo.Client
	reminders   *mongo.Collection
	preferences *mongo.Collection
	counters    *mongo.Collection
	timeout     time.Duration
}

func NewMongoReminderRepository(client *mongo.Client, database string, timeout time.Duration) *MongoReminderRepository {
	db := client.Database(database)
	return &MongoReminderRepository{
		client:      client,
		reminders:   db.Collection(remindersCollection),
		preferences: db.Collection(preferencesCollection),
		counters:    db.Collection(countersCollection),
		timeout:     timeout,
	}
}

// EnsureIndexes creates the secondary indexes used by list queries.
func (r *MongoReminderRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.reminders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "remind_at", Value: 1}},
	})
	return NewStorageError("create indexes", err)
}

func (r *MongoReminderRepository) AddReminder(ctx context.Context, chatID int64, task string, remindAt int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	id, err := r.nextID(ctx, remindersCollection)
	if err != nil {
		return 0, NewStorageError("next reminder id", err)
	}

	reminder := Reminder{
		ID:       id,
		ChatID:   chatID,
		Task:     task,
		RemindAt: remindAt,
	}
	if _, err := r.reminders.InsertOne(ctx, reminder); err != nil {
		return 0, NewStorageError("insert reminder", err)
	}
	return id, nil
}

// nextID increments a per-collection sequence. Ids are never handed out twice,
// even after the reminder that used them is deleted.
func (r *MongoReminderRepository) nextID(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (r *MongoReminderRepository) GetReminders(ctx context.Context, chatID *int64) ([]Reminder, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{}
	if chatID != nil {
		filter["chat_id"] = *chatID
	}
	opts := options.Find().SetSort(bson.D{{Key: "remind_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.reminders.Find(ctx, filter, opts)
	if err != nil {
		return nil, NewStorageError("find reminders", err)
	}
	defer cursor.Close(ctx)

	reminders := make([]Reminder, 0)
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, NewStorageError("decode reminders", err)
	}
	return reminders, nil
}

func (r *MongoReminderRepository) DeleteReminder(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.reminders.DeleteOne(ctx, bson.M{"_id": id})
	return NewStorageError("delete reminder", err)
}

func (r *MongoReminderRepository) GetUserTimezone(ctx context.Context, chatID int64) (string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var pref UserPreference
	err := r.preferences.FindOne(ctx, bson.M{"_id": chatID}).Decode(&pref)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", NewStorageError("find user timezone", err)
	}
	return pref.Timezone, nil
}

func (r *MongoReminderRepository) SetUserTimezone(ctx context.Context, chatID int64, timezone string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.preferences.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{"timezone": timezone}},
		options.Update().SetUpsert(true),
	)
	return NewStorageError("upsert user timezone", err)
}

func (r *MongoReminderRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
