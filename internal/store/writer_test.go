package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/piekstra/tirds/internal/help"
	"github.com/piekstra/tirds/model"
	"github.com/stretchr/testify/require"
)

func openPair(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := help.DBPath(t, "cache")
	w, err := OpenWriter(t.Context(), path, help.Silent())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	r, err := OpenReader(t.Context(), path, help.Silent())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return w, r
}

// TestWriter_Upsert_ReadBackByteIdentical returns exactly the payload that was written.
func TestWriter_Upsert_ReadBackByteIdentical(t *testing.T) {
	w, r := openPair(t)
	payload := `{"value":[28.0],  "note":"spacing and ordering kept","z":1,"a":2}`

	require.NoError(t, w.Upsert(t.Context(), help.RawRow("indicator:rsi_14:AAPL", "AAPL", payload, 300*time.Second)))

	row, ok, err := r.Get(t.Context(), "indicator:rsi_14:AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload, row.ValueJSON)
	require.Equal(t, "AAPL", row.SymbolOrEmpty())
	require.Equal(t, model.CategoryIndicator.String(), row.Category)
}

// TestWriter_Upsert_ReplacesExisting keeps one row and exposes the latest payload.
func TestWriter_Upsert_ReplacesExisting(t *testing.T) {
	w, r := openPair(t)
	ctx := t.Context()

	require.NoError(t, w.Upsert(ctx, help.RawRow("quote:AAPL", "AAPL", `{"price":"1"}`, time.Minute)))
	require.NoError(t, w.Upsert(ctx, help.RawRow("quote:AAPL", "", `{"price":"2"}`, time.Minute)))

	n, err := w.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	row, ok, err := r.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"price":"2"}`, row.ValueJSON)
	require.Nil(t, row.Symbol, "replacement is full, not partial")
}

// TestWriter_Upsert_EmptyKey rejects keyless rows.
func TestWriter_Upsert_EmptyKey(t *testing.T) {
	w, _ := openPair(t)

	require.ErrorIs(t, w.Upsert(t.Context(), help.Row("", "AAPL", 1, time.Minute)), ErrEmptyKey)
	require.ErrorIs(t, w.UpsertBatch(t.Context(), []model.Row{help.Row("a", "", 1, time.Minute), help.Row("", "", 1, time.Minute)}), ErrEmptyKey)

	n, err := w.Count(t.Context())
	require.NoError(t, err)
	require.Zero(t, n, "a rejected batch writes nothing")
}

// TestWriter_ExpireStale_DeletesOnlyExpired deletes exactly the stale rows and is idempotent.
func TestWriter_ExpireStale_DeletesOnlyExpired(t *testing.T) {
	w, _ := openPair(t)
	ctx := t.Context()

	require.NoError(t, w.UpsertBatch(ctx, []model.Row{
		help.Row("fresh:1", "TEST", 1, 10*time.Minute),
		help.Row("fresh:2", "TEST", 1, 10*time.Minute),
		help.Row("stale:1", "TEST", 1, -10*time.Second),
		help.Row("stale:2", "TEST", 1, -10*time.Second),
		help.Row("stale:3", "TEST", 1, -10*time.Second),
	}))
	n, err := w.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), n)

	deleted, err := w.ExpireStale(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)

	n, err = w.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	deleted, err = w.ExpireStale(ctx)
	require.NoError(t, err)
	require.Zero(t, deleted)
}

// TestWriter_Upsert_OffsetTimestamps stores zoned RFC3339 stamps in UTC so expiry compares correctly.
func TestWriter_Upsert_OffsetTimestamps(t *testing.T) {
	w, r := openPair(t)
	ctx := t.Context()
	now := time.Now()

	fresh := help.RawRow("quote:AAPL", "AAPL", `{"price":"1"}`, time.Minute)
	fresh.ExpiresAt = now.Add(30 * time.Minute).In(time.FixedZone("EST", -5*3600)).Format(time.RFC3339)
	stale := help.RawRow("quote:MSFT", "MSFT", `{"price":"2"}`, time.Minute)
	stale.ExpiresAt = now.Add(-30 * time.Minute).In(time.FixedZone("JST", 9*3600)).Format(time.RFC3339)

	require.NoError(t, w.Upsert(ctx, fresh))
	require.NoError(t, w.UpsertBatch(ctx, []model.Row{stale}))

	row, ok, err := r.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	require.True(t, ok, "row expiring in 30 minutes is visible")
	require.True(t, strings.HasSuffix(row.ExpiresAt, "Z"), row.ExpiresAt)

	_, ok, err = r.Get(ctx, "quote:MSFT")
	require.NoError(t, err)
	require.False(t, ok, "row that expired 30 minutes ago is hidden")

	deleted, err := w.ExpireStale(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, ok, err = r.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	require.True(t, ok)
}

// TestWriter_Upsert_RejectsUnparsableTimestamp fails before writing anything.
func TestWriter_Upsert_RejectsUnparsableTimestamp(t *testing.T) {
	w, _ := openPair(t)
	ctx := t.Context()

	bad := help.RawRow("quote:AAPL", "AAPL", `{"price":"1"}`, time.Minute)
	bad.ExpiresAt = "tomorrow"

	require.ErrorIs(t, w.Upsert(ctx, bad), ErrBadTimestamp)
	err := w.UpsertBatch(ctx, []model.Row{help.Row("quote:MSFT", "MSFT", 1, time.Minute), bad})
	require.ErrorIs(t, err, ErrBadTimestamp)

	n, err := w.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

// TestWriter_UpsertBatch_RollsBackOnFailure never commits a partially applied batch.
func TestWriter_UpsertBatch_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	w := newWriter(db, "mock", help.Silent())

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO cache_entries")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = w.UpsertBatch(t.Context(), []model.Row{
		help.Row("bars:AAPL:5m", "AAPL", 1, time.Minute),
		help.Row("quote:AAPL", "AAPL", 1, time.Minute),
		help.Row("never:written", "AAPL", 1, time.Minute),
	})
	require.Error(t, err)
	require.True(t, IsUnavailable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestWriter_UpsertBatch_CommitFailure surfaces a failed commit as unavailable.
func TestWriter_UpsertBatch_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	w := newWriter(db, "mock", help.Silent())

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO cache_entries")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err = w.UpsertBatch(t.Context(), []model.Row{help.Row("quote:MSFT", "MSFT", 1, time.Minute)})
	require.ErrorIs(t, err, ErrUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestWriter_Closed returns ErrClosed after Close and tolerates a second Close.
func TestWriter_Closed(t *testing.T) {
	w, err := OpenWriter(t.Context(), help.DBPath(t, "closed"), help.Silent())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	require.ErrorIs(t, w.Upsert(t.Context(), help.Row("k", "", 1, time.Minute)), ErrClosed)
	_, err = w.ExpireStale(t.Context())
	require.ErrorIs(t, err, ErrClosed)
	_, err = w.Count(t.Context())
	require.ErrorIs(t, err, ErrClosed)
}

// TestOpenWriter_EmptyPath fails as unavailable before touching the driver.
func TestOpenWriter_EmptyPath(t *testing.T) {
	_, err := OpenWriter(context.Background(), "  ", help.Silent())
	require.ErrorIs(t, err, ErrUnavailable)
}

// TestDSN_CarriesPragmas applies busy timeout and WAL on every connection.
func TestDSN_CarriesPragmas(t *testing.T) {
	d := dsn("/tmp/x.db", newOptions([]Option{WithBusyTimeout(2 * time.Second)}), true)
	require.Contains(t, d, "busy_timeout%282000%29")
	require.Contains(t, d, "journal_mode%28WAL%29")
	require.Contains(t, d, "_txlock=immediate")
}
