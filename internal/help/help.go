// Package help holds fixtures shared by package tests.
package help

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/piekstra/tirds/model"
)

// Logger returns a JSON logger tagged like the production one.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "tirds"),
		slog.String("env", "test"),
	)
}

// Silent discards everything; handy for stress tests.
func Silent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DBPath returns a fresh database file path inside t.TempDir().
func DBPath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

// Row builds an indicator row for symbol whose payload is {"value": value}.
// A negative ttl yields an already expired row.
func Row(key, symbol string, value float64, ttl time.Duration) model.Row {
	return model.NewRow(key, model.CategoryIndicator, fmt.Sprintf(`{"value":%v}`, value), "test", symbol, ttl, time.Now())
}

// RawRow builds a row with an arbitrary JSON payload.
func RawRow(key, symbol, valueJSON string, ttl time.Duration) model.Row {
	return model.NewRow(key, model.CategoryIndicator, valueJSON, "test", symbol, ttl, time.Now())
}
