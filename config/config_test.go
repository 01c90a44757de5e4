package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Messaging.EditWindow)
	assert.Equal(t, 60*time.Minute, cfg.Messaging.DeleteWindow)
	assert.Equal(t, 5*time.Second, cfg.Messaging.LockTimeout)
	assert.Equal(t, 5, cfg.RateLimit.MaxMessages)
	assert.Equal(t, 30*time.Second, cfg.Realtime.GroupCacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("EDIT_WINDOW_MINUTES", "5")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("LOG_DEV", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Messaging.EditWindow)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Log.Development)
}

func TestFromEnvErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "abc")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "SERVER_PORT")

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DELETE_WINDOW_MINUTES", "0")
	_, err = FromEnv()
	assert.Error(t, err)
}
