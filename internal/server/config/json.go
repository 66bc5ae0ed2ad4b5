package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/scankeeper/internal/flagx"
	"github.com/dmitrijs2005/scankeeper/internal/timex"
)

// JsonConfig is the DTO for the JSON config file. Absent keys leave the
// current value alone.
type JsonConfig struct {
	ListenAddr      string          `json:"listen_addr"`
	DatabaseDSN     string          `json:"database_dsn"`
	LogLevel        string          `json:"log_level"`
	LogFormat       string          `json:"log_format"`
	RateLimit       *float64        `json:"rate_limit"`
	RateBurst       *int            `json:"rate_burst"`
	ShutdownTimeout *timex.Duration `json:"shutdown_timeout"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ListenAddr != "" {
		cfg.ListenAddr = jc.ListenAddr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.LogFormat != "" {
		cfg.LogFormat = jc.LogFormat
	}
	if jc.RateLimit != nil {
		cfg.RateLimit = *jc.RateLimit
	}
	if jc.RateBurst != nil {
		cfg.RateBurst = *jc.RateBurst
	}
	if jc.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = jc.ShutdownTimeout.Duration
	}
	return nil
}
