// Package limiters provides the failed-login lockout tracker.
//
// [Lockout] counts consecutive failed attempts per account under
// "loginAttempts:<account>" (sliding one-hour TTL) and, once the configured
// threshold is exceeded, sets "lockout:<account>" for the lockout duration
// while deleting the counter in the same transaction.
//
// # Architecture boundaries
//
// The tracker only counts and reports an [Outcome]. Audit events, metrics,
// and the user-facing error are decided by the caller.
//
// # What this package must NOT do
//
//   - Import sessionguard or any sibling internal package except internal/kv.
//   - Emit audit events or log.
package limiters
