package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/watchlist"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, watchlist.Blacklist, cfg.Mode)
	assert.InDelta(t, 0.52, cfg.SimilarityThreshold, 0.0001)
	assert.Equal(t, 1000*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 60*time.Second, cfg.AlertCooldown)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.False(t, cfg.TelegramConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WATCH_MODE", "whitelist")
	t.Setenv("SIMILARITY_THRESHOLD", "0.65")
	t.Setenv("FRAME_INTERVAL", "500ms")
	t.Setenv("ALERT_COOLDOWN", "2m")
	t.Setenv("CAMERA_FPS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, watchlist.Whitelist, cfg.Mode)
	assert.InDelta(t, 0.65, cfg.SimilarityThreshold, 0.0001)
	assert.Equal(t, 500*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 2*time.Minute, cfg.AlertCooldown)
	assert.Equal(t, 30, cfg.CameraFPS)
}

func TestLoadRejectsBadMode(t *testing.T) {
	t.Setenv("WATCH_MODE", "greylist")
	_, err := Load()
	assert.ErrorContains(t, err, "WATCH_MODE")
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	for _, v := range []string{"0", "1", "-0.3"} {
		t.Setenv("SIMILARITY_THRESHOLD", v)
		_, err := Load()
		assert.Error(t, err, "threshold %s", v)
	}
}

func TestLoadRejectsBadRotation(t *testing.T) {
	t.Setenv("CAMERA_ROTATION", "45")
	_, err := Load()
	assert.ErrorContains(t, err, "CAMERA_ROTATION")

	t.Setenv("CAMERA_ROTATION", "270")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 270, cfg.CameraRotation)
}

func TestLoadAuthRequiresPassword(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	_, err := Load()
	assert.ErrorContains(t, err, "AUTH_PASSWORD")

	t.Setenv("AUTH_PASSWORD", "hunter2")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AuthEnabled)
}

func TestBadEnvValuesFallBack(t *testing.T) {
	t.Setenv("CAMERA_FPS", "not-a-number")
	t.Setenv("FRAME_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.CameraFPS)
	assert.Equal(t, 1000*time.Millisecond, cfg.FrameInterval)
}
