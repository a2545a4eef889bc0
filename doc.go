// Package labauth implements account and session management for the lab
// backend: signup with consent capture, password login, rotating refresh
// credentials, logout and account deletion.
//
// [Service] is the public surface and is built through [Builder]. Its
// methods are safe for concurrent use once Build returns.
//
// # Credentials
//
// Access credentials are short-lived signed tokens verified without storage
// lookups. Refresh credentials are opaque random strings; only their sha256
// digest is persisted, and every successful refresh revokes the presented
// credential and issues a new one atomically.
//
// # What this package must NOT do
//
//   - Reveal whether an identity exists on a failed login.
//   - Persist raw refresh credentials or passwords.
//   - Import sub-packages that re-import labauth (no import cycles).
package labauth
