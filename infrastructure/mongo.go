package infrastructure

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongoDB connects to uri and pings the primary, retrying with exponential
// backoff for up to maxWait. The bot cannot reconcile reminders without its store,
// so the caller treats an error here as fatal.
func ConnectMongoDB(ctx context.Context, uri string, maxWait time.Duration, logger zerolog.Logger) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mongo client")
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	exp.MaxElapsedTime = maxWait

	attempt := 0
	ping := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := client.Ping(pingCtx, readpref.Primary())
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("mongo ping failed")
		}
		return err
	}

	if err := backoff.Retry(ping, backoff.WithContext(exp, ctx)); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to reach mongo")
	}

	logger.Info().Int("attempts", attempt).Msg("connected to mongo")
	return client, nil
}
