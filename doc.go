// Package sessionguard governs authentication sessions per account: it
// counts failed logins and applies temporary lockouts, keeps a
// recency-ordered registry of each account's live sessions, caps how many
// an account may hold, and revokes sessions singly, per account or
// system-wide.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// sessionguard is the public surface. It exposes [Engine], [Builder], [Config], and value
// types ([SessionView], [LockoutStatus], [MetricsSnapshot]). Flow orchestration, the Redis
// key-value adapter, the lockout tracker, the session registry, and audit dispatch live
// under internal/. Session records themselves belong to the web tier and are reached
// through [session.Backend].
//
// # What this package must NOT do
//
//   - Verify credentials or issue cookies.
//   - Run background timers; every expiry is a store TTL.
//   - Import any sub-package that re-imports sessionguard (no import cycles).
//
// # Consistency contract
//
// Every removal of a session id from an account's session set removes its UUID mapping in
// the same transaction, and every read or mutation first prunes entries whose session has
// expired or now belongs to another account.
package sessionguard
