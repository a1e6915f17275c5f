package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:7878", cfg.Server.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.Server.AuthTimeout.D())
	assert.Equal(t, 100, cfg.Server.FrameSize)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, m.Load())
	assert.Equal(t, *DefaultConfig(), m.Get())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	cfg.Server.WSAddr = "0.0.0.0:7879"
	cfg.Input.KeySettle = Duration(10 * time.Millisecond)
	cfg.Log.JSON = true
	m.Set(cfg)
	require.NoError(t, m.Save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"key_settle": "10ms"`)

	other, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, other.Load())
	assert.Equal(t, cfg, other.Get())
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":{"listen_addr":"0.0.0.0:9000"}}`), 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr)
	assert.Equal(t, 4*time.Millisecond, cfg.Input.PointerInterval.D())
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":{"auth_timeout":"soon"}}`), 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Error(t, m.Load())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad listen addr", func(c *Config) { c.Server.ListenAddr = "7878" }},
		{"bad ws path", func(c *Config) { c.Server.WSAddr = ":7879"; c.Server.WSPath = "kbm" }},
		{"ws path shadows health", func(c *Config) { c.Server.WSAddr = ":7879"; c.Server.WSPath = "/health" }},
		{"no secret", func(c *Config) { c.Server.SecretFile = "" }},
		{"zero auth timeout", func(c *Config) { c.Server.AuthTimeout = 0 }},
		{"huge frame", func(c *Config) { c.Server.FrameSize = 1 << 20 }},
		{"rate without burst", func(c *Config) { c.Server.AuthBurst = 0 }},
		{"zero step", func(c *Config) { c.Input.PointerStep = 0 }},
		{"zero interval", func(c *Config) { c.Input.PointerInterval = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationAcceptsNanoseconds(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`1000000`)))
	assert.Equal(t, time.Millisecond, d.D())
}
