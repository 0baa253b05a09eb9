package infrastructure

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

// OpenSQLite opens the database file at path with a single connection so that
// every write is serialized.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite %s", path)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to ping sqlite %s", path)
	}
	return db, nil
}
