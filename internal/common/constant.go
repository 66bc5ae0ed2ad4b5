package common

// Wire constants shared by the HTTP remote-store client and the reference server.
const (
	// CodesPath is the collection resource of the remote store.
	CodesPath = "/codigos"
	// HealthPath answers 200 "OK" while the server is up.
	HealthPath = "/health"
	// IdempotencyKeyHeader carries the device-generated record id on create so a
	// replayed request returns the record created the first time.
	IdempotencyKeyHeader = "Idempotency-Key"
)
