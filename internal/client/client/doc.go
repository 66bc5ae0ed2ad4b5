// Package client contains the device-side plumbing for scankeeper.
//
// # Overview
//
// The package provides:
//  1. The RemoteStore contract the sync engine depends on (List, Create,
//     Delete) and HTTPClient, its HTTP+JSON implementation against the
//     /codigos resource.
//  2. Local persistence bootstrap (InitDatabase, RunMigrations) opening the
//     device SQLite database with durable pragmas and embedded goose
//     migrations.
//
// # Error Handling
//
// Transient failures wrap ErrNetwork; permanent create refusals are returned
// as *RejectedError. Use IsRetryable and IsRejected, or errors.Is/As.
// Database bootstrap failures wrap common.ErrPersistence.
//
// No retry policy lives here; callers decide when to try again.
package client
