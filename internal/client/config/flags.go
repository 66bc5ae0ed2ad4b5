package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-d", "-t", "-s", "-b", "-i", "-w", "-l", "-f"}

// parseFlags populates Config fields from command-line flags:
//
//	-a string    base URL of the remote record store
//	-d string    path of the local database file
//	-t duration  timeout of a single remote call
//	-s duration  interval between full sync passes
//	-b duration  upper bound of the retry backoff
//	-i int       online check interval (in seconds)
//	-w duration  duplicate scan window
//	-l string    log level
//	-f string    log format (text or json)
//
// Other arguments are filtered out with flagx.FilterArgs so the REPL and the
// JSON loader can share the command line.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("scankeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the remote store")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database file")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "remote call timeout")
	fs.DurationVar(&cfg.SyncInterval, "s", cfg.SyncInterval, "sync interval")
	fs.DurationVar(&cfg.MaxBackoff, "b", cfg.MaxBackoff, "max retry backoff")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.DurationVar(&cfg.DedupWindow, "w", cfg.DedupWindow, "duplicate scan window")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return nil
}
