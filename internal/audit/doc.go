// Package audit relays authentication events to a persistent sink without
// blocking the request path.
//
// # Components
//
//   - [Entry]: one append-only authentication event.
//   - [Sink]: destination for entries (the audit table in production).
//   - [Dispatcher]: buffered async relay with drop-if-full semantics, or a
//     synchronous pass-through when the buffer size is zero.
//
// Sink errors are logged and counted. They never reach the caller of Emit.
//
// # What this package must NOT do
//
//   - Decide which events to emit.
//   - Import labauth or any sibling internal package.
package audit
