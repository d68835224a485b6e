package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 24, cfg.Auth.PendingTTLHours)
	assert.Equal(t, 30, cfg.Auth.UsernameChangeDays)
	assert.Equal(t, "fit_session", cfg.Session.CookieName)
	assert.Equal(t, 168, cfg.Session.TTLHours)
	assert.Equal(t, "0 0 * * *", cfg.Cleanup.Schedule)
	assert.Equal(t, 30, cfg.Planner.HorizonDays)
	assert.True(t, cfg.Queue.Async)
	assert.Equal(t, "plan_queue", cfg.Queue.PlanQueue)
	assert.Equal(t, "sql", cfg.PlanStore.Driver)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxSize)
	assert.Contains(t, cfg.Upload.AllowedExtensions, ".png")
}

func TestLoad_LocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "session:\n  secret: from-base\n")
	writeConfig(t, dir, "config.local.yaml", "session:\n  secret: from-local\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-local", cfg.Session.Secret)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "email:\n  provider: smtp\n  sendgrid_api_key: \"\"\n")

	t.Setenv("EMAIL_PROVIDER", "sendgrid")
	t.Setenv("EMAIL_SENDGRID_API_KEY", "SG.test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sendgrid", cfg.Email.Provider)
	assert.Equal(t, "SG.test", cfg.Email.SendgridAPIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
