package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/scankeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags:
//
//	-a string    HTTP bind address (e.g. ":8080")
//	-d string    PostgreSQL DSN
//	-l string    log level
//	-f string    log format (text or json)
//	-r float     write requests per second per client
//	-b int       rate limit burst
//	-t duration  graceful shutdown timeout
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-l", "-f", "-r", "-b", "-t"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")
	fs.Float64Var(&cfg.RateLimit, "r", cfg.RateLimit, "write requests per second per client")
	fs.IntVar(&cfg.RateBurst, "b", cfg.RateBurst, "rate limit burst")
	fs.DurationVar(&cfg.ShutdownTimeout, "t", cfg.ShutdownTimeout, "graceful shutdown timeout")

	return fs.Parse(args)
}
