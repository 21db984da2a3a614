package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fortroute/internal/db"
)

// isolate runs the test in an empty directory with no config file.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(PathEnvVar, "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, db.BackendBadger, cfg.Store.Backend)
	assert.Equal(t, "./data/fortroute", cfg.Store.Path)
	assert.Equal(t, "ws://localhost:8000/rpc", cfg.SurrealDB.URL)
	assert.Equal(t, "/tmp/fortroute.log", cfg.Log.File)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, 8484, cfg.Server.Port)
	assert.Equal(t, 20.0, cfg.Server.IngestRate)
	assert.Equal(t, 40, cfg.Server.IngestBurst)
	assert.Equal(t, "medium", cfg.Planner.DefaultEnergy)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: memory
server:
  port: 9000
  ingest_rate: 5
log:
  level: debug
planner:
  default_energy: low
`), 0o644))

	t.Setenv(PathEnvVar, path)
	t.Setenv("FORTROUTE_PORT", "9100")
	t.Setenv("SURREALDB_NAMESPACE", "forts")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, db.BackendMemory, cfg.Store.Backend, "from file")
	assert.Equal(t, 5.0, cfg.Server.IngestRate, "from file")
	assert.Equal(t, 9100, cfg.Server.Port, "env beats file")
	assert.Equal(t, "forts", cfg.SurrealDB.Namespace, "env beats default")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, "low", cfg.Planner.DefaultEnergy)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultPath), []byte("sites:\n  dir: ./forts\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "./forts", cfg.Sites.Dir)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FORTROUTE_STORE_BACKEND=memory\n"), 0o644))
	// godotenv never overrides variables already set; make sure this one is unset.
	t.Setenv("FORTROUTE_STORE_BACKEND", "")
	require.NoError(t, os.Unsetenv("FORTROUTE_STORE_BACKEND"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, db.BackendMemory, cfg.Store.Backend)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv(PathEnvVar, filepath.Join(dir, "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"FORTROUTE_STORE_BACKEND", "etcd"},
		{"FORTROUTE_PORT", "70000"},
		{"FORTROUTE_INGEST_RATE", "0"},
		{"FORTROUTE_DEFAULT_ENERGY", "extreme"},
		{"SURREALDB_AUTH_LEVEL", "namespace"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPersistence(t *testing.T) {
	isolate(t)
	t.Setenv("SURREALDB_USER", "fort")
	cfg, err := Load()
	require.NoError(t, err)

	sc := cfg.Persistence()
	assert.Equal(t, cfg.Store.Backend, sc.Backend)
	assert.Equal(t, "fort", sc.Surreal.Username)
	assert.Equal(t, "root", sc.Surreal.AuthLevel)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var console, file bytes.Buffer
	logger := SetupLoggerWithWriters(&console, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("plan served", "site", "shivneri")

	assert.Contains(t, console.String(), "msg=\"plan served\"")
	assert.NotContains(t, console.String(), "hidden")
	assert.True(t, strings.HasPrefix(file.String(), "{"), "file output is JSON")
	assert.Contains(t, file.String(), `"site":"shivneri"`)
}

func TestSetupLogger_FileFallback(t *testing.T) {
	logger, cleanup := SetupLogger(filepath.Join(t.TempDir(), "missing", "dir", "x.log"), slog.LevelInfo)
	require.NotNil(t, logger)
	assert.NoError(t, cleanup())

	path := filepath.Join(t.TempDir(), "ok.log")
	logger, cleanup = SetupLogger(path, slog.LevelInfo)
	logger.Info("written")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
}
