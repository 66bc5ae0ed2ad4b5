// Package cli provides the interactive scankeeper client.
//
// It wires configuration, the local record store, the HTTP remote store and
// the sync services behind a small REPL. A background scheduler runs full
// sync passes and a connectivity watcher switches between online and
// offline mode, syncing as soon as the server is reachable again.
//
// When standard input is not a terminal (a keyboard-wedge scanner or a
// pipe) every input line is stored as one scan instead of being parsed as a
// command.
//
// See App, runREPL and runScannerInput for details.
package cli
