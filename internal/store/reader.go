package store

import (
	"context"
	"database/sql"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/piekstra/tirds/model"
)

const (
	selectByKeySQL = `SELECT ` + rowColumns + ` FROM cache_entries
		WHERE key = ? AND expires_at > ?`
	selectBySymbolSQL = `SELECT ` + rowColumns + ` FROM cache_entries
		WHERE symbol = ? AND expires_at > ? ORDER BY key`
	selectByPrefixSQL = `SELECT ` + rowColumns + ` FROM cache_entries
		WHERE key >= ? AND key < ? AND expires_at > ? ORDER BY key`
	selectFromSQL = `SELECT ` + rowColumns + ` FROM cache_entries
		WHERE key >= ? AND expires_at > ? ORDER BY key`
	countLiveSQL = `SELECT COUNT(*) FROM cache_entries WHERE expires_at > ?`
)

// Reader is a read-only, expiry-aware view of the cache file. It may live in
// another process than the Writer; WAL keeps the two from blocking each other.
// Every query compares expires_at with the clock at the moment it runs.
type Reader struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
	closed atomic.Bool
}

func OpenReader(ctx context.Context, path string, logger *slog.Logger, opts ...Option) (*Reader, error) {
	o := newOptions(append([]Option{WithMaxOpenConns(runtime.GOMAXPROCS(0))}, opts...))
	db, err := open(ctx, path, o, false, logger)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(o.maxOpen)
	db.SetMaxIdleConns(o.maxOpen)
	return &Reader{db: db, path: path, logger: logger, now: time.Now}, nil
}

func (r *Reader) Path() string { return r.path }

// Get returns the unexpired row stored under key; a miss is (zero, false, nil).
func (r *Reader) Get(ctx context.Context, key string) (model.Row, bool, error) {
	if r.closed.Load() {
		return model.Row{}, false, ErrClosed
	}
	row, err := scanRow(r.db.QueryRowContext(ctx, selectByKeySQL, key, r.nowString()))
	switch {
	case err == nil:
		return row, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return model.Row{}, false, nil
	default:
		return model.Row{}, false, unavailable(err, "get cache row")
	}
}

// GetBySymbol returns every unexpired row tagged with symbol, ordered by key.
func (r *Reader) GetBySymbol(ctx context.Context, symbol string) ([]model.Row, error) {
	return r.query(ctx, "get rows by symbol", selectBySymbolSQL, symbol, r.nowString())
}

// GetByPrefix returns every unexpired row whose key starts with prefix, ordered by key.
// The scan is a key range so the primary key index serves it and the match is byte-exact.
func (r *Reader) GetByPrefix(ctx context.Context, prefix string) ([]model.Row, error) {
	if upper, ok := prefixUpperBound(prefix); ok {
		return r.query(ctx, "get rows by prefix", selectByPrefixSQL, prefix, upper, r.nowString())
	}
	return r.query(ctx, "get rows by prefix", selectFromSQL, prefix, r.nowString())
}

// Count returns the number of unexpired rows.
func (r *Reader) Count(ctx context.Context) (int64, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, countLiveSQL, r.nowString()).Scan(&n); err != nil {
		return 0, unavailable(err, "count live rows")
	}
	return n, nil
}

// Total returns the physical row count, expired rows included.
func (r *Reader) Total(ctx context.Context) (int64, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
		return 0, unavailable(err, "count rows")
	}
	return n, nil
}

func (r *Reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := r.db.Close(); err != nil {
		return unavailable(err, "close reader")
	}
	return nil
}

func (r *Reader) nowString() string {
	return model.FormatTime(r.now())
}

func (r *Reader) query(ctx context.Context, op, query string, args ...any) ([]model.Row, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(err, op)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, unavailable(err, op)
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, unavailable(err, op)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (model.Row, error) {
	var (
		row    model.Row
		symbol sql.NullString
	)
	if err := s.Scan(&row.Key, &row.Category, &row.ValueJSON, &row.Source, &symbol,
		&row.CreatedAt, &row.ExpiresAt, &row.UpdatedAt); err != nil {
		return model.Row{}, err
	}
	if symbol.Valid {
		row.Symbol = &symbol.String
	}
	return row, nil
}

// prefixUpperBound returns the smallest string greater than every string with the prefix.
// There is none for an empty prefix or one made only of 0xff bytes.
func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}
