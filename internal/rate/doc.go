// Package rate decides whether a login attempt keyed by client address and
// account identifier may proceed within a trailing window.
//
// # Backends
//
//   - [RedisBackend]: shared across instances. INCR with EXPIRE on the first
//     hit of a window, executed as one Lua script. Fixed buckets approximate a
//     sliding window; a burst straddling a bucket boundary may admit up to
//     2*max attempts.
//   - [MemoryBackend]: exact sliding window of attempt timestamps per key,
//     serialized by a mutex, pruned so memory stays bounded.
//   - [FallbackBackend]: tries the shared backend and degrades to the
//     in-process one on error. It never degrades to "always allow".
//
// [Limiter] adds an optional, independent check against recorded failed
// logins (the audit history) with its own threshold.
//
// Keys are "<client address>:<identity>" (see [Key]). A successful signup or
// login calls [Limiter.Reset], which clears that client's bucket for the
// identity. The audit history is not cleared, so recent failures still count
// toward its threshold in hybrid mode.
//
// # What this package must NOT do
//
//   - Surface backend failures to callers.
//   - Import labauth or any sibling internal package.
package rate
