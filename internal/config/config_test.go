package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":1883", cfg.MQTTBindAddress)
	assert.Equal(t, "data/wardtrack.db", cfg.DatabasePath)
	assert.Empty(t, cfg.RosterPath)
	assert.Equal(t, 5*time.Minute, cfg.PresenceTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WARDTRACK_HTTP_PORT", "9000")
	t.Setenv("WARDTRACK_PRESENCE_TIMEOUT_MINUTES", "15")
	t.Setenv("WARDTRACK_ROSTER_PATH", "/etc/wardtrack/roster.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 15*time.Minute, cfg.PresenceTimeout)
	assert.Equal(t, "/etc/wardtrack/roster.yaml", cfg.RosterPath)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("WARDTRACK_HTTP_PORT", "eighty")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("WARDTRACK_PRESENCE_TIMEOUT_MINUTES", "0")
	_, err := Load()
	require.Error(t, err)
}
