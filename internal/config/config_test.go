package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 600*time.Millisecond, cfg.Tuning.Dwell)
	assert.Equal(t, 0.25, cfg.Tuning.BlinkThreshold)
	assert.Equal(t, 5, cfg.Tuning.BlinkWindow)
	assert.Equal(t, 3, cfg.Tuning.BlinkMajority)
	assert.Equal(t, 10, cfg.Suggest.Max)
	assert.True(t, cfg.Camera.Mirror)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "defaults", cfg.Source)
	assert.Equal(t, Default().Tuning, cfg.Tuning)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
log_level = "debug"

[camera]
device_id = 2
mirror = false

[tuning]
dwell = "800ms"
blink_ratio_threshold = 0.2
gaze_smoothing = 0.5

[server]
enabled = true
addr = "127.0.0.1:9999"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Camera.DeviceID)
	assert.False(t, cfg.Camera.Mirror)
	assert.Equal(t, 640, cfg.Camera.Width, "unset fields keep defaults")
	assert.Equal(t, 800*time.Millisecond, cfg.Tuning.Dwell)
	assert.Equal(t, 0.2, cfg.Tuning.BlinkThreshold)
	assert.Equal(t, 0.5, cfg.Tuning.Smoothing)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "camera = [")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GAZEKEYS_TUNING_DWELL", "1s")
	t.Setenv("GAZEKEYS_CAMERA_DEVICE_ID", "3")
	t.Setenv("GAZEKEYS_LOG_LEVEL", "warn")
	t.Setenv("GAZEKEYS_OUTPUT_CURSOR", "none")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Tuning.Dwell)
	assert.Equal(t, 3, cfg.Camera.DeviceID)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "none", cfg.Output.Cursor)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero camera width", func(c *Config) { c.Camera.Width = 0 }},
		{"zero fps", func(c *Config) { c.Camera.FPS = 0 }},
		{"confidence above one", func(c *Config) { c.Detector.MinConfidence = 1.5 }},
		{"zero dwell", func(c *Config) { c.Tuning.Dwell = 0 }},
		{"smoothing zero", func(c *Config) { c.Tuning.Smoothing = 0 }},
		{"majority not below window", func(c *Config) { c.Tuning.BlinkMajority = 5 }},
		{"negative threshold", func(c *Config) { c.Tuning.BlinkThreshold = -0.1 }},
		{"zero suggestions", func(c *Config) { c.Suggest.Max = 0 }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"server without addr", func(c *Config) { c.Server.Enabled = true; c.Server.Addr = "" }},
		{"unknown cursor", func(c *Config) { c.Output.Cursor = "mouse" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestTuning_Blink(t *testing.T) {
	bc := Default().Tuning.Blink()
	assert.Equal(t, 0.25, bc.RatioThreshold)
	assert.Equal(t, 5, bc.Window)
	assert.Equal(t, 3, bc.Majority)
}

func TestLoader_PublishesTuningChanges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file watcher test in short mode")
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[tuning]\ndwell = \"600ms\"\n")

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, l.Watch(ctx))

	writeFile(t, path, "[tuning]\ndwell = \"900ms\"\n")

	select {
	case tuning := <-l.Updates():
		assert.Equal(t, 900*time.Millisecond, tuning.Dwell)
	case <-time.After(5 * time.Second):
		t.Fatal("no tuning update received")
	}
	assert.Equal(t, 900*time.Millisecond, l.Current().Tuning.Dwell)
}

func TestLoader_IgnoresInvalidChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[tuning]\ndwell = \"600ms\"\n")

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)

	writeFile(t, path, "[tuning]\ndwell = \"0s\"\n")
	l.reload()

	select {
	case <-l.Updates():
		t.Fatal("invalid config should not publish")
	default:
	}
	assert.Equal(t, 600*time.Millisecond, l.Current().Tuning.Dwell)
}

func TestLoader_PublishKeepsLatest(t *testing.T) {
	l := NewLoader("unused")
	l.publish(Tuning{Dwell: time.Second})
	l.publish(Tuning{Dwell: 2 * time.Second})

	got := <-l.Updates()
	assert.Equal(t, 2*time.Second, got.Dwell)
}
