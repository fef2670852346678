package store

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/piekstra/tirds/model"
)

const (
	upsertSQL = `INSERT INTO cache_entries (` + rowColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			category   = excluded.category,
			value_json = excluded.value_json,
			source     = excluded.source,
			symbol     = excluded.symbol,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`
	expireSQL = `DELETE FROM cache_entries WHERE expires_at < ?`
	countSQL  = `SELECT COUNT(*) FROM cache_entries`
)

// Writer is the only component that mutates the cache file.
// Its handle is not meant to be shared between goroutines without a single owner;
// the ingestion daemon funnels every call through one worker.
type Writer struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
	closed atomic.Bool
}

// OpenWriter opens path read-write, enables WAL and creates the schema if absent.
func OpenWriter(ctx context.Context, path string, logger *slog.Logger, opts ...Option) (*Writer, error) {
	db, err := open(ctx, path, newOptions(opts), true, logger)
	if err != nil {
		return nil, err
	}
	return newWriter(db, path, logger), nil
}

func newWriter(db *sql.DB, path string, logger *slog.Logger) *Writer {
	// one connection: every write is serialized at the driver too
	db.SetMaxOpenConns(1)
	return &Writer{db: db, path: path, logger: logger, now: time.Now}
}

func (w *Writer) Path() string { return w.path }

// Upsert inserts the row or fully replaces the row stored under the same key.
func (w *Writer) Upsert(ctx context.Context, row model.Row) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if row.Key == "" {
		return ErrEmptyKey
	}
	args, err := rowArgs(row)
	if err != nil {
		return err
	}
	if _, err = w.db.ExecContext(ctx, upsertSQL, args...); err != nil {
		return unavailable(err, "upsert cache row")
	}
	return nil
}

// UpsertBatch applies rows in one transaction. Readers observe none or all of them.
func (w *Writer) UpsertBatch(ctx context.Context, rows []model.Row) (err error) {
	if w.closed.Load() {
		return ErrClosed
	}
	if len(rows) == 0 {
		return nil
	}
	batch := make([][]any, len(rows))
	for i := range rows {
		if rows[i].Key == "" {
			return errors.Wrapf(ErrEmptyKey, "batch row %d", i)
		}
		if batch[i], err = rowArgs(rows[i]); err != nil {
			return errors.Wrapf(err, "batch row %d", i)
		}
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(err, "begin batch")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				w.logger.Error("rollback cache batch", "error", rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return unavailable(err, "prepare batch upsert")
	}
	defer func() { _ = stmt.Close() }()

	for i := range rows {
		if _, err = stmt.ExecContext(ctx, batch[i]...); err != nil {
			return unavailable(err, "upsert batch row "+rows[i].Key)
		}
	}

	if err = tx.Commit(); err != nil {
		return unavailable(err, "commit batch")
	}
	return nil
}

// ExpireStale deletes every row whose expires_at is before now and returns how many went away.
func (w *Writer) ExpireStale(ctx context.Context) (int64, error) {
	if w.closed.Load() {
		return 0, ErrClosed
	}
	res, err := w.db.ExecContext(ctx, expireSQL, model.FormatTime(w.now()))
	if err != nil {
		return 0, unavailable(err, "expire stale rows")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err, "count expired rows")
	}
	return n, nil
}

// Count returns the physical row count, expired rows included.
func (w *Writer) Count(ctx context.Context) (int64, error) {
	if w.closed.Load() {
		return 0, ErrClosed
	}
	var n int64
	if err := w.db.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
		return 0, unavailable(err, "count rows")
	}
	return n, nil
}

func (w *Writer) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := w.db.Close(); err != nil {
		return unavailable(err, "close writer")
	}
	return nil
}

// rowArgs re-renders every timestamp in model.TimeLayout; expiry is compared as text.
func rowArgs(r model.Row) ([]any, error) {
	var symbol sql.NullString
	if r.Symbol != nil {
		symbol = sql.NullString{String: *r.Symbol, Valid: true}
	}
	created, err := canonicalTime(r.Key, "created_at", r.CreatedAt)
	if err != nil {
		return nil, err
	}
	expires, err := canonicalTime(r.Key, "expires_at", r.ExpiresAt)
	if err != nil {
		return nil, err
	}
	updated, err := canonicalTime(r.Key, "updated_at", r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return []any{r.Key, r.Category, r.ValueJSON, r.Source, symbol, created, expires, updated}, nil
}

func canonicalTime(key, column, value string) (string, error) {
	t, err := model.ParseTime(value)
	if err != nil {
		return "", errors.WithHint(
			errors.Mark(errors.Wrapf(err, "%s of %s", column, key), ErrBadTimestamp),
			"timestamps must be RFC3339",
		)
	}
	return model.FormatTime(t), nil
}
