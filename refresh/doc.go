// Package refresh implements the server-side store for opaque rotating refresh
// credentials.
//
// # Token format
//
// A refresh credential is 64 bytes of crypto/rand output, base64url-encoded
// without padding. Only its SHA-256 hex digest is persisted. The raw value is
// returned once to the caller and cannot be re-derived from storage.
//
// # Lifecycle
//
// A [Record] is usable only while RevokedAt is nil and now is before
// ExpiresAt. [Store.Rotate] revokes the presented record and inserts its
// successor atomically, so replaying a rotated credential always fails. Revoke
// and RevokeAll are idempotent. [Store.Sweep] deletes rows that are already
// revoked or expired and is safe to run concurrently with issuance.
//
// # Architecture boundaries
//
// Persistence is delegated to a [Repository]. [MemoryRepository] serves tests
// and single-process development; the Postgres implementation lives in
// storage/postgres.
//
// # What this package must NOT do
//
//   - Persist or log raw credentials.
//   - Distinguish expired, revoked, and unknown credentials to callers.
//   - Treat repository failures as "not found".
package refresh
