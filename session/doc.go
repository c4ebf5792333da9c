// Package session models the session records owned by the web tier and
// provides a Redis-backed [Store] for them.
//
// # Record format
//
// Records are JSON objects stored under "sess:<sid>" with the session's own
// TTL, matching the layout written by connect-redis style middleware. Only
// the fields the governor reads are modeled: meta (creation time, ip, uuid)
// and passport.user.
//
// # Architecture boundaries
//
// This package owns the [Record] model and the [Backend] contract. It does
// NOT decide session membership, lockouts, or eviction; those belong to the
// registry and governor flows.
//
// # What this package must NOT do
//
//   - Import sessionguard or any internal package (no upward imports).
//   - Mutate session membership indexes.
package session
