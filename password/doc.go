// Package password validates credential strength and produces salted one-way
// hashes for account secrets.
//
// # Hashers
//
//   - [Bcrypt]: default, cost-parameterised bcrypt.
//
//   - [Argon2]: argon2id encoded in PHC string format:
//
//     $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Both implement [Hasher]. [Hasher.NeedsUpgrade] reports whether a stored hash
// was produced with weaker parameters than the current configuration so the
// caller can re-hash after the next successful login.
//
// # Policy
//
// [Policy.Validate] rejects secrets shorter than the minimum length and secrets
// that do not contain at least one letter and at least one digit.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other labauth package.
//   - Log plaintext passwords or hash parameters.
package password
