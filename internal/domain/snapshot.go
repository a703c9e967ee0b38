package domain

// TokenSnapshot is a TokenInfo observed at a point in time.
// Corresponds to token_snapshots table in PostgreSQL.
type TokenSnapshot struct {
	Info       TokenInfo
	ObservedAt int64 // when the snapshot was read (ms)
	CreatedAt  int64 // record creation timestamp (ms)
}
