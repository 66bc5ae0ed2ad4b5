// Package models defines the client-side data model: captured code records,
// their sync state and the remote store's view of them.
package models
