package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// isolate points .env lookups at an empty temp dir so the developer's own
// files do not leak into tests.
func isolate(t *testing.T) {
	t.Helper()
	old := DotEnvFile
	DotEnvFile = filepath.Join(t.TempDir(), ".env")
	t.Cleanup(func() { DotEnvFile = old })
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()

	cfg, err := Load(t.TempDir(), dataDir)
	require.NoError(t, err)
	assert.Equal(t, Default(dataDir), cfg)
	assert.Equal(t, types.BackendSQLite, cfg.Sink.Backend)
	assert.Equal(t, filepath.Join(dataDir, "feed"), cfg.Feed.Dir)
	assert.Equal(t, DefaultFeedURL, cfg.Feed.URL)
}

func TestLoadEmptyFeedURLDisablesDownload(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeConfig(t, dir, "feed:\n  url: \"\"\n")

	cfg, err := Load(dir, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Feed.URL)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	isolate(t)
	configDir := t.TempDir()
	writeConfig(t, configDir, `
database:
  name: transit
  user: gtfs
  password: secret
  host: db.example.com
  port: 6543
feed:
  url: https://example.com/gtfs.zip
  max_age: 24h
  retries: 4
sink:
  backend: postgres
tables:
  line_stops: lines
cache:
  fingerprint: true
log:
  level: debug
  format: json
`)

	cfg, err := Load(configDir, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, types.DatabaseConfig{Name: "transit", User: "gtfs", Password: "secret", Host: "db.example.com", Port: 6543}, cfg.Database)
	assert.Equal(t, "https://example.com/gtfs.zip", cfg.Feed.URL)
	assert.Equal(t, 24*time.Hour, cfg.Feed.MaxAge)
	assert.Equal(t, 4, cfg.Feed.Retries)
	assert.Equal(t, 5*time.Minute, cfg.Feed.Timeout)
	assert.Equal(t, types.BackendPostgres, cfg.Sink.Backend)
	assert.Equal(t, "lines", cfg.Tables.LineStops)
	assert.Equal(t, types.StopDetailsTable, cfg.Tables.StopDetails)
	assert.True(t, cfg.Cache.Fingerprint)
	assert.Equal(t, types.LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)
	configDir := t.TempDir()
	writeConfig(t, configDir, "sink:\n  backend: jsonl\n  path: /tmp/out\n")
	t.Setenv("GTFSTABLES_SINK_PATH", "/srv/tables")
	t.Setenv("GTFSTABLES_FEED_RETRIES", "7")

	cfg, err := Load(configDir, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, types.BackendJSONL, cfg.Sink.Backend)
	assert.Equal(t, "/srv/tables", cfg.Sink.Path)
	assert.Equal(t, 7, cfg.Feed.Retries)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(DotEnvFile, []byte("GTFSTABLES_DATABASE_PASSWORD=from-dotenv\n"), 0o644))
	// Register cleanup for the variable godotenv is about to set.
	t.Setenv("GTFSTABLES_DATABASE_PASSWORD", "")
	require.NoError(t, os.Unsetenv("GTFSTABLES_DATABASE_PASSWORD"))

	cfg, err := Load(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Database.Password)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "unknown backend", content: "sink:\n  backend: mongo\n", wantErr: types.ErrBackendUnknown},
		{name: "bad table name", content: "tables:\n  line_stops: \"drop table\"\n", wantErr: types.ErrInvalidConfig},
		{name: "bad log level", content: "log:\n  level: loud\n", wantErr: types.ErrInvalidConfig},
		{name: "malformed yaml", content: "sink: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			configDir := t.TempDir()
			writeConfig(t, configDir, tt.content)

			_, err := Load(configDir, t.TempDir())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	isolate(t)
	configDir := filepath.Join(t.TempDir(), "nested")
	dataDir := t.TempDir()
	want := Default(dataDir)
	want.Feed.URL = "https://example.com/feed.zip"

	path, created, err := WriteDefault(configDir, want)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, filepath.Join(configDir, FileName), path)

	got, err := Load(configDir, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteDefaultKeepsExisting(t *testing.T) {
	configDir := t.TempDir()
	writeConfig(t, configDir, "sink:\n  backend: jsonl\n")

	_, created, err := WriteDefault(configDir, Default(t.TempDir()))
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(filepath.Join(configDir, FileName))
	require.NoError(t, err)
	assert.Equal(t, "sink:\n  backend: jsonl\n", string(data))
}
