package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdp-net/gdp-go/pkg/packet"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, packet.DefaultMTU, cfg.MTU)
	assert.Equal(t, packet.DefaultTTL, cfg.DefaultTTL)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.toml")

	cfg := DefaultConfig()
	cfg.ConfigPath = path
	cfg.MTU = 900
	cfg.SourceName = "ab"
	cfg.SecretHex = "00112233445566778899aabbccddeeff"
	require.NoError(t, SaveConfig(cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 900, loaded.MTU)
	assert.Equal(t, cfg.SecretHex, loaded.SecretHex)
	assert.Equal(t, path, loaded.ConfigPath)
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.toml")
	require.NoError(t, CreateDefaultConfig(path))

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NoError(t, loaded.Validate())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.toml")
	require.NoError(t, os.WriteFile(path, []byte("mtu = 10\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"TinyMTU", func(c *Config) { c.MTU = packet.HeaderSize }},
		{"ZeroTTL", func(c *Config) { c.DefaultTTL = 0 }},
		{"HugeTTL", func(c *Config) { c.DefaultTTL = 300 }},
		{"ZeroStale", func(c *Config) { c.StaleSeconds = 0 }},
		{"ZeroBackoff", func(c *Config) { c.BackoffMillis = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
