package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/piekstra/tirds/internal/help"
	"github.com/piekstra/tirds/internal/store"
	"github.com/piekstra/tirds/model"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cache.db")

	w, err := store.OpenWriter(t.Context(), dbPath, help.Silent())
	require.NoError(t, err)
	require.NoError(t, w.UpsertBatch(t.Context(), []model.Row{
		help.Row("quote:A", "A", 1, -time.Minute),
		help.Row("quote:B", "B", 1, -time.Minute),
		help.Row("quote:C", "C", 1, time.Hour),
	}))
	require.NoError(t, w.Close())

	cfgPath := filepath.Join(dir, "loader.toml")
	body := fmt.Sprintf("[cache]\nsqlite_path = %q\n\n[market_data]\ndata_path = %q\n\n[log]\nlevel = \"error\"\n", dbPath, dir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(t.Context()))
	return out.String()
}

// TestStatsThenExpire reports counts, removes stale rows and reports again.
func TestStatsThenExpire(t *testing.T) {
	cfgPath := seed(t)

	stats := execute(t, "stats", "--config", cfgPath)
	require.Contains(t, stats, "total: 3\n")
	require.Contains(t, stats, "live: 1\n")
	require.Contains(t, stats, "expired: 2\n")

	require.Equal(t, "expired 2 rows\n", execute(t, "expire", "-c", cfgPath))
	require.Contains(t, execute(t, "stats", "--config", cfgPath), "total: 1\n")
}

// TestMissingConfig fails when the config file does not exist.
func TestMissingConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats", "--config", filepath.Join(t.TempDir(), "nope.toml")})
	require.Error(t, cmd.ExecuteContext(t.Context()))
}

// TestNewLogger_TagsServiceAndEnv writes JSON lines carrying service and env.
func TestNewLogger_TagsServiceAndEnv(t *testing.T) {
	var out bytes.Buffer
	newLogger(&out, slog.LevelInfo, "staging").Info("loader daemon starting")
	newLogger(&out, slog.LevelInfo, "staging").Debug("filtered by level")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &line))
	require.Equal(t, "tirds-loader", line["service"])
	require.Equal(t, "staging", line["env"])
	require.Equal(t, "loader daemon starting", line["msg"])
}
