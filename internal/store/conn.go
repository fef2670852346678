package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	DefaultBusyTimeout = 5 * time.Second
)

type options struct {
	busyTimeout time.Duration
	maxOpen     int
}

// Option tunes how a Writer or Reader opens the database file.
type Option func(*options)

// WithBusyTimeout sets how long a connection waits on a locked database before failing.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithMaxOpenConns caps the reader pool. The writer always uses one connection.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpen = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// dsn applies per-connection pragmas through the driver so every pooled
// connection gets them, not just the first one.
func dsn(path string, o options, immediate bool) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", o.busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	if immediate {
		q.Set("_txlock", "immediate")
	}
	return "file:" + path + "?" + q.Encode()
}

func open(ctx context.Context, path string, o options, immediate bool, logger *slog.Logger) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.WithHint(errors.Mark(errors.New("empty database path"), ErrUnavailable),
			"set the sqlite path in the cache configuration")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, unavailable(err, "create database directory")
		}
	}

	db, err := sql.Open(driverName, dsn(path, o, immediate))
	if err != nil {
		return nil, unavailable(err, "open database")
	}

	var mode string
	if err = db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		_ = db.Close()
		return nil, errors.WithHint(unavailable(err, "query journal mode"),
			"check that the database file is readable and not corrupted")
	}
	if !strings.EqualFold(mode, "wal") {
		_ = db.Close()
		return nil, errors.Mark(errors.Newf("journal mode is %q, want wal", mode), ErrUnavailable)
	}

	if err = ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("cache database opened", "path", path, "journal_mode", mode, "busy_timeout", o.busyTimeout.String())
	return db, nil
}
