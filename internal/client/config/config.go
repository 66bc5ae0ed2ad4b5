package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the scankeeper client.
type Config struct {
	// ServerURL is the base URL of the remote record store.
	ServerURL    string
	DatabasePath string

	// RequestTimeout bounds every remote call.
	RequestTimeout      time.Duration
	SyncInterval        time.Duration
	MaxBackoff          time.Duration
	OnlineCheckInterval time.Duration
	// DedupWindow drops identical scans accepted less than this long ago.
	DedupWindow time.Duration

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabasePath = "scankeeper.db"
	c.RequestTimeout = 10 * time.Second
	c.SyncInterval = 30 * time.Second
	c.MaxBackoff = 5 * time.Minute
	c.OnlineCheckInterval = 3 * time.Second
	c.DedupWindow = 2 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.ServerURL == "":
		return fmt.Errorf("server url is required")
	case c.DatabasePath == "":
		return fmt.Errorf("database path is required")
	case c.RequestTimeout <= 0:
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	case c.SyncInterval <= 0:
		return fmt.Errorf("sync interval must be positive, got %s", c.SyncInterval)
	case c.OnlineCheckInterval <= 0:
		return fmt.Errorf("online check interval must be positive, got %s", c.OnlineCheckInterval)
	case c.MaxBackoff < c.SyncInterval:
		return fmt.Errorf("max backoff %s is shorter than sync interval %s", c.MaxBackoff, c.SyncInterval)
	case c.DedupWindow < 0:
		return fmt.Errorf("dedup window must not be negative")
	}
	return nil
}

// LoadConfig constructs a Config from args (without the program name):
// defaults first, then the JSON file named by -c/-config, then flags. Later
// sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
