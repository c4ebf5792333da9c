// Package audit implements async event dispatching for security-relevant
// governor operations such as account lockouts.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: audit record with timestamp, type, account, IP and metadata.
//
// The postgres subpackage provides a durable [Sink].
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; that responsibility belongs to the Engine and flow functions.
package audit
