// Package config loads runtime configuration for the scankeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations are timex.Duration values, written either as strings like "3s"
// or as integer nanoseconds. Every key is optional:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "database_path": "scankeeper.db",
//	  "request_timeout": "10s",
//	  "sync_interval": "30s",
//	  "max_backoff": "5m",
//	  "online_check_interval": "3s",
//	  "dedup_window": "2s",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
