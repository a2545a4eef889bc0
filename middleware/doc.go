// Package middleware provides the HTTP adapters around labauth.Service.
//
// # Middleware
//
//   - [ClientMeta] attaches the caller's address and User-Agent to the
//     request context for rate limiting and audit entries. Forwarded
//     headers count only when the socket peer is a trusted proxy.
//   - [CSRF] enforces double-submit protection on unsafe methods that are
//     not bearer authenticated.
//   - [Guard] verifies the access credential from the Authorization header
//     or the access cookie and injects its claims.
//   - [RequireRole] rejects authenticated callers lacking a role.
//
// The package translates HTTP semantics into Service calls. Authentication
// decisions are delegated to the Authenticator passed to [Guard].
package middleware
