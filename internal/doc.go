// Package internal holds the building blocks of the governor that are private
// to sessionguard.
//
// # Sub-packages
//
//   - kv: the key-value store contract over go-redis, with transactions
//   - limiters: the failed-login lockout tracker
//   - registry: per-account session membership and device index
//   - accounts: account enumeration from Redis or SQL for system-wide wipes
//   - flows: pure-function flow orchestrators for every Engine operation
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - audit/postgres: persisted audit events and their migrations
//   - logging: slog construction for the binaries
//
// # What this package must NOT do
//
//   - Export types that appear in the public sessionguard API other than
//     through aliases in the root package.
//   - Be imported by any package outside the sessionguard module.
package internal
