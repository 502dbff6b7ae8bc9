package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 5, cfg.Scheduler.AckReminderCeiling)
	assert.Equal(t, 3, cfg.Scheduler.StartReminderCeiling)
	assert.Equal(t, "UTC", cfg.Dispatch.FallbackTimezone)
	assert.Equal(t, "admin:alerts", cfg.Redis.AdminChannel)
	assert.Equal(t, 160, cfg.SMS.MaxMessageSize)
}

func TestLoadFile_Overrides(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  interval: 30s
  ack_reminder_ceiling: 7
dispatch:
  fallback_timezone: America/New_York
email:
  primary: resend
  fallback: [smtp]
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 7, cfg.Scheduler.AckReminderCeiling)
	assert.Equal(t, "America/New_York", cfg.Dispatch.FallbackTimezone)
	assert.Equal(t, "resend", cfg.Email.Primary)
	assert.Equal(t, []string{"smtp"}, cfg.Email.Fallback)
}

func TestLoadFile_EnvOverridesAndSecrets(t *testing.T) {
	t.Setenv("SCHEDULER_BATCH_SIZE", "50")
	t.Setenv("SMTP_PASSWORD", "s3cret")
	t.Setenv("SMS_API_KEY", "key-123")

	cfg, err := LoadFile(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Scheduler.BatchSize)
	assert.Equal(t, "s3cret", cfg.Email.SMTP.Password)
	assert.Equal(t, "key-123", cfg.SMS.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown email provider", "email:\n  primary: pigeon\n"},
		{"zero ceiling", "scheduler:\n  start_reminder_ceiling: 0\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"bad sms gateway", "sms:\n  gateway_url: not a url\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
