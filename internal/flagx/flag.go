// Package flagx holds helpers for components that parse their own subset of
// the process arguments without tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args made of the flags listed in allowed,
// together with their values.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -s 30s
//  2. Flag and value combined with '=':      -config=client.json
//
// A token that starts with '-' is never consumed as a value, so a flag given
// without a value is kept on its own.
//
// Parameters:
//
//	args    - the command-line arguments (usually os.Args[1:])
//	allowed - flag names to keep (e.g. []string{"-c", "-config"})
//
// Returns:
//
//	A non-nil slice with the allowed flags and their values, in input order.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		known[f] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "-flag=value": keep or drop the whole token
		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if known[name] {
				out = append(out, arg)
			}
			continue
		}

		if !known[arg] {
			continue
		}
		out = append(out, arg)
		// "-flag value": the value rides along unless it looks like a flag
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigPath extracts the JSON config file path given with -c or -config.
//
// Only these two flags are parsed; everything else in args is ignored, so the
// caller can run its own flag set over the same arguments afterwards. Parse
// errors are swallowed here and reported by that later pass.
//
// Returns:
//
//	The path of the last -c/-config occurrence, or "" when neither is present.
func ConfigPath(args []string) string {
	var path string
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))
	return path
}
