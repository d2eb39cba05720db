package configfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingDirectory(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, cfg, "missing config means not initialized, not an error")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &Config{
		Backend:            "postgres",
		PostgresDSN:        "postgres://lockit@db/lockit?sslmode=disable",
		OfflineDB:          "offline.db",
		TokenPrefix:        "local|",
		TrashRetentionDays: 14,
	}
	require.NoError(t, in.Save(dir))

	out, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, out)
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DefaultDirName)
	require.NoError(t, DefaultConfig().Save(dir))

	_, err := os.Stat(ConfigPath(dir))
	require.NoError(t, err)
}

func TestYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, DefaultConfig().Save(dir))
	yamlPath := filepath.Join(dir, YAMLFileName)
	require.NoError(t, os.WriteFile(yamlPath, []byte(
		"backend: postgres\npostgres_dsn: postgres://localhost/lockit\ntrash_retention_days: 7\n"), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Backend)
	assert.Equal(t, "postgres://localhost/lockit", cfg.PostgresDSN)
	assert.Equal(t, 7, cfg.TrashRetentionDays)
	// Untouched fields keep their metadata values.
	assert.Equal(t, "server.db", cfg.ServerDB)
}

func TestYAMLParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, DefaultConfig().Save(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, YAMLFileName), []byte("backend: [oops"), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing yaml config")
}

func TestDBPathDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, filepath.Join("d", "server.db"), cfg.ServerDBPath("d"))
	assert.Equal(t, filepath.Join("d", "offline.db"), cfg.OfflineDBPath("d"))

	cfg = &Config{ServerDB: "main.db", OfflineDB: "mirror.db"}
	assert.Equal(t, filepath.Join("d", "main.db"), cfg.ServerDBPath("d"))
	assert.Equal(t, filepath.Join("d", "mirror.db"), cfg.OfflineDBPath("d"))
}

func TestGetGCInterval(t *testing.T) {
	assert.Equal(t, time.Hour, (&Config{}).GetGCInterval())
	assert.Equal(t, 15*time.Minute, (&Config{GCIntervalMinutes: 15}).GetGCInterval())
}

func TestGetTrashRetentionDays(t *testing.T) {
	assert.Equal(t, DefaultTrashRetentionDays, (&Config{}).GetTrashRetentionDays())
	assert.Equal(t, DefaultTrashRetentionDays, (&Config{TrashRetentionDays: -1}).GetTrashRetentionDays())
	assert.Equal(t, 90, (&Config{TrashRetentionDays: 90}).GetTrashRetentionDays())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{Backend: "postgres"}).Validate())
	assert.NoError(t, (&Config{Backend: "postgres", PostgresDSN: "postgres://x"}).Validate())
	assert.Error(t, (&Config{Backend: "dolt"}).Validate())
}
