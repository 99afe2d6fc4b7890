package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"

	"github.com/gdp-net/gdp-go/internal/log"
	"github.com/gdp-net/gdp-go/pkg/packet"
	"github.com/gdp-net/gdp-go/pkg/transport"
)

const (
	DefaultStaleSeconds   = 300
	DefaultBackoffMillis  = 3000
	DefaultWriteTimeoutMS = 2000
	DefaultReplyWaitMS    = 0
)

// Config is the client's TOML configuration.
type Config struct {
	ConfigPath string `toml:"-"`

	// ListenAddr is the local UDP bind for the library side.
	ListenAddr string `toml:"listen_addr"`

	// SidecarAddr is the default forwarding sidecar, used by process
	// wiring to seed the route table.
	SidecarAddr string `toml:"sidecar_addr"`

	MTU            int `toml:"mtu"`
	DefaultTTL     int `toml:"default_ttl"`
	StaleSeconds   int `toml:"stale_seconds"`
	BackoffMillis  int `toml:"backoff_millis"`
	WriteTimeoutMS int `toml:"write_timeout_ms"`
	ReplyWaitMS    int `toml:"reply_wait_ms"`

	// SourceName is the client's own 32-byte name, hex encoded. Empty
	// means frames go out with a zero source.
	SourceName string `toml:"source_name"`

	// SecretHex enables frame sealing when non-empty.
	SecretHex string `toml:"secret"`

	LogLevel int `toml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     fmt.Sprintf(":%d", transport.DefaultLibPort),
		SidecarAddr:    fmt.Sprintf("127.0.0.1:%d", transport.DefaultSidecarPort),
		MTU:            packet.DefaultMTU,
		DefaultTTL:     packet.DefaultTTL,
		StaleSeconds:   DefaultStaleSeconds,
		BackoffMillis:  DefaultBackoffMillis,
		WriteTimeoutMS: DefaultWriteTimeoutMS,
		ReplyWaitMS:    DefaultReplyWaitMS,
		LogLevel:       log.LevelInfo,
	}
}

func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".gdp", "client.toml"), nil
}

// LoadConfig reads a config file, layering it over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.ConfigPath = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the configuration back to its path.
func SaveConfig(cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(cfg.ConfigPath, data, 0644)
}

// CreateDefaultConfig writes a default config file, creating the
// directory if needed.
func CreateDefaultConfig(path string) error {
	cfg := DefaultConfig()
	cfg.ConfigPath = path

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return SaveConfig(cfg)
}

// InitConfig loads the config at the default path, creating it first if
// it does not exist.
func InitConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := CreateDefaultConfig(path); err != nil {
			return nil, err
		}
	}
	return LoadConfig(path)
}

func (c *Config) Validate() error {
	if c.MTU <= packet.HeaderSize {
		return fmt.Errorf("mtu %d leaves no room for a frame header", c.MTU)
	}
	if c.DefaultTTL < 1 || c.DefaultTTL > 255 {
		return fmt.Errorf("default_ttl %d outside 1-255", c.DefaultTTL)
	}
	if c.StaleSeconds <= 0 {
		return fmt.Errorf("stale_seconds must be positive, got %d", c.StaleSeconds)
	}
	if c.BackoffMillis <= 0 {
		return fmt.Errorf("backoff_millis must be positive, got %d", c.BackoffMillis)
	}
	return nil
}
