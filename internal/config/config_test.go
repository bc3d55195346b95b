package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("UNILODGE_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "jwt secret")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("UNILODGE_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.AppPort)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, time.Second, cfg.StreamPollInterval)
	require.Equal(t, 30*time.Second, cfg.StreamLifetime)
	require.Equal(t, 3*time.Second, cfg.TypingWindow)
	require.Equal(t, 10, cfg.TypingRateLimit)
	require.Equal(t, "unilodge", cfg.EventChannelBase)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("UNILODGE_JWT_SECRET", "test-secret")
	t.Setenv("UNILODGE_APP_PORT", ":9000")
	t.Setenv("UNILODGE_STREAM_POLL_INTERVAL", "250ms")
	t.Setenv("UNILODGE_STREAM_LIFETIME", "10s")
	t.Setenv("UNILODGE_TYPING_WINDOW", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.HTTPAddress())
	require.Equal(t, 250*time.Millisecond, cfg.StreamPollInterval)
	require.Equal(t, 10*time.Second, cfg.StreamLifetime)
	require.Equal(t, 5*time.Second, cfg.TypingWindow)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("UNILODGE_JWT_SECRET", "test-secret")
	t.Setenv("UNILODGE_STREAM_POLL_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestNonPositiveDurationFallsBack(t *testing.T) {
	t.Setenv("UNILODGE_JWT_SECRET", "test-secret")
	t.Setenv("UNILODGE_STREAM_POLL_INTERVAL", "-5s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.StreamPollInterval)
}
