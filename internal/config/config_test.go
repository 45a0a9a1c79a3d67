package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Render, cfg.Render)
	assert.Equal(t, DriverModernc, cfg.Database.Driver)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexday.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
render:
  fps: 24
  workers: 3
  font_timeout: 5s
database:
  driver: sqlite3
openai:
  model: gpt-4o
`), 0o644))
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DEV_FORCE_PREMIUM", "TRUE")
	t.Setenv("LEXDAY_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Render.FPS)
	assert.Equal(t, 3, cfg.Render.Workers)
	assert.Equal(t, 1080, cfg.Render.Width)
	assert.Equal(t, 5*time.Second, cfg.Render.FontTimeout)
	assert.Equal(t, DriverCgo, cfg.Database.Driver)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.True(t, cfg.Dev.ForcePremium)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"fps", func(c *Config) { c.Render.FPS = 0 }, "fps must be positive"},
		{"size", func(c *Config) { c.Render.Height = -1 }, "size must be positive"},
		{"driver", func(c *Config) { c.Database.Driver = "postgres" }, `unknown database driver "postgres"`},
		{"transport", func(c *Config) { c.Notify.Transport = "sms" }, `unknown notify transport "sms"`},
		{"detector", func(c *Config) { c.Render.Detector = "kmeans" }, "render detector: k-means detector not yet implemented"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexday.yaml")
	require.NoError(t, os.WriteFile(path, []byte("render: [1, 2"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestWatcherReloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "lexday.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dev:\n  force_premium: false\n"), 0o644))

	w, err := NewWatcher(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	changed := make(chan *Config, 4)
	w.OnChange(func(c *Config) { changed <- c })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.False(t, w.Current().Dev.ForcePremium)
	require.NoError(t, os.WriteFile(path, []byte("dev:\n  force_premium: true\n"), 0o644))

	select {
	case c := <-changed:
		assert.True(t, c.Dev.ForcePremium)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
	assert.True(t, w.Current().Dev.ForcePremium)
}
