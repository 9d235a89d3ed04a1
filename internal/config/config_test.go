package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/officewatch/internal/config"
)

// clearEnv blanks every OFFICE_* variable the loader reads so tests see only
// what they set themselves.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OFFICE_CONFIG", "OFFICE_HOST", "OFFICE_PORT", "OFFICE_PORT_ATTEMPTS",
		"OFFICE_READ_TIMEOUT", "OFFICE_WRITE_TIMEOUT", "OFFICE_CORS_ORIGINS",
		"OFFICE_POLL_INTERVAL", "OFFICE_SESSION_FILE", "OFFICE_POINTER_FILE",
		"OFFICE_DOCS_SUBDIR", "OFFICE_EDITOR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4777, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.PortAttempts)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.PollInterval)
	assert.Equal(t, "docs", cfg.Docs.Subdir)
	assert.Equal(t, "code", cfg.Editor.Command)
	assert.Equal(t, "127.0.0.1:4777", cfg.Server.Addr())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OFFICE_HOST", "0.0.0.0")
	t.Setenv("OFFICE_PORT", "8088")
	t.Setenv("OFFICE_POLL_INTERVAL", "500ms")
	t.Setenv("OFFICE_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("OFFICE_SESSION_FILE", "/tmp/s1.json")
	t.Setenv("OFFICE_EDITOR", "vim")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.PollInterval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/tmp/s1.json", cfg.Watch.SessionFile)
	assert.Equal(t, "vim", cfg.Editor.Command)
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "officewatch.yaml")
	body := `
server:
  port: 9000
watch:
  pollInterval: 1s
docs:
  subdir: plans
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("OFFICE_CONFIG", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Watch.PollInterval)
	assert.Equal(t, "plans", cfg.Docs.Subdir)
	// Untouched sections keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "officewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))
	t.Setenv("OFFICE_CONFIG", path)
	t.Setenv("OFFICE_PORT", "9100")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port out of range", key: "OFFICE_PORT", value: "70000"},
		{name: "port not a number", key: "OFFICE_PORT", value: "abc"},
		{name: "zero attempts", key: "OFFICE_PORT_ATTEMPTS", value: "0"},
		{name: "poll interval too small", key: "OFFICE_POLL_INTERVAL", value: "1ms"},
		{name: "bad duration", key: "OFFICE_READ_TIMEOUT", value: "fast"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("OFFICE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := config.Load()
	assert.Error(t, err)
}
