// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRecordFailedAttempt, RunAddSession, RunRevokeAll,
// RunDeleteAll, etc.) accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the lockout tracker, session registry,
// session backend, account index, audit dispatcher, and metrics. They do NOT
// own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import sessionguard (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependencies.
package flows
