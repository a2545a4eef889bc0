// Package jwt issues and verifies short-lived signed access credentials
// carrying subject and role claims.
//
// # Validation
//
// Tokens fail closed on: unexpected algorithm, bad signature, wrong issuer,
// missing exp/iat/iss/sub/role, expiry, or an issued-at too far in the future.
// The configured leeway applies to exp and iat comparisons only.
//
// # What this package must NOT do
//
//   - Consult any store. Access credential validity is self-contained and
//     cannot be revoked before expiry.
//   - Import any other labauth package.
package jwt
