package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/scankeeper/internal/client/services"
)

// execIface defines the command surface the REPL needs. The real App type
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	Scan(ctx context.Context, payload, symbology string) error
	List(ctx context.Context) error
	Remote(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Copy(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Resync(ctx context.Context, id string) error
	Sync(ctx context.Context) error
}

const helpText = `Available commands:
  scan [-t symbology] <text>  store a scanned code; the rest of the line is
                              the payload (symbology defaults to qr)
  (l)ist                      list local records, newest first
  remote                      show the last fetched server view
  show <id>                   show a record with its sync status
  copy <id>                   print only the payload of a record
  delete <id>                 delete a record here and on the server
  sync                        run a full sync pass now
  resync <id>                 retry a record the server rejected
  exit | quit                 leave the program`

// runREPL reads a line at a time from scanner, dispatches the first token as
// the command and reports handler errors to w. For scan the remainder of the
// line is kept verbatim as the payload. Commands that need a record
// id prompt for it when it is missing. The loop exits on EOF, on exit or quit,
// or once ctx is done.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "sk %s> ", statusFn())
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		args := strings.Fields(rest)

		var err error
		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)

		case "scan":
			payload, symbology, ok := parseScan(rest)
			if !ok {
				fmt.Fprintln(w, "Usage: scan [-t symbology] <text>")
				continue
			}
			err = a.Scan(ctx, payload, symbology)

		case "l", "list":
			err = a.List(ctx)

		case "remote":
			err = a.Remote(ctx)

		case "show", "copy", "delete", "resync":
			id, ok := recordID(args, scanner, w)
			if !ok {
				continue
			}
			switch cmd {
			case "show":
				err = a.Show(ctx, id)
			case "copy":
				err = a.Copy(ctx, id)
			case "delete":
				err = a.Delete(ctx, id)
			case "resync":
				err = a.Resync(ctx, id)
			}

		case "sync":
			err = a.Sync(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(w, "Error:", err)
		}
	}
}

// parseScan splits "[-t symbology] payload". Inner spaces of the payload are
// preserved.
func parseScan(rest string) (payload, symbology string, ok bool) {
	rest = strings.TrimLeft(rest, " \t")
	if flag, tail, found := strings.Cut(rest, " "); found && flag == "-t" {
		symbology, payload, _ = strings.Cut(strings.TrimLeft(tail, " \t"), " ")
		payload = strings.TrimLeft(payload, " \t")
		return payload, symbology, symbology != "" && payload != ""
	}
	if rest == "-t" {
		return "", "", false
	}
	return rest, "", rest != ""
}

func recordID(args []string, scanner *bufio.Scanner, w io.Writer) (string, bool) {
	if len(args) > 0 {
		return args[0], true
	}
	id, err := GetSimpleText(scanner, "Enter record id", w)
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// runScannerInput treats every non-blank line as a scan with the default
// symbology. Rejected lines are reported and skipped.
func runScannerInput(ctx context.Context, a execIface, scanner *bufio.Scanner, w io.Writer) {
	for ctx.Err() == nil && scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := a.Scan(ctx, line, ""); err != nil {
			if errors.Is(err, services.ErrInvalidCapture) {
				fmt.Fprintln(w, "Skipped:", err)
				continue
			}
			fmt.Fprintln(w, "Error:", err)
		}
	}
}
