package database

import (
	"context"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/forwardafrica/backend/core"
	appfs "github.com/forwardafrica/backend/fs"
)

// Open connects to the application database.
func Open(conf *core.Config) (*sqlx.DB, error) {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.Database.Address(),
		Path:     conf.Database.Name,
		RawQuery: q.Encode(),
	}
	return sqlx.Open("postgres", u.String())
}

// StatusCheck waits for the database to be ready. Waits 100ms longer between each attempt.
func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// Migrate brings the schema up to date using the embedded goose migrations.
func Migrate(db *sqlx.DB) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
