package sessionguard

import (
	"context"
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/sessionguard/internal/audit"
	"github.com/MrEthical07/sessionguard/internal/limiters"
	"github.com/MrEthical07/sessionguard/internal/registry"
)

// SessionView is one entry of [Engine.ListSessions]: the session id, whether
// it is the caller's own session, its login time and HTML-escaped client
// metadata.
type SessionView = registry.View

// LockoutStatus is the lockout state of one account as reported by
// [Engine.LockoutStatus].
type LockoutStatus = limiters.LockoutStatus

// AccountIndex enumerates every account id in a stable order for
// [Engine.DeleteAllSessions].
type AccountIndex interface {
	EachBatch(ctx context.Context, size int, fn func(ctx context.Context, accounts []int64) error) error
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that logs each event.
type SlogSink = internalaudit.SlogSink

// AuditEventAccountLocked is the type of the event emitted when a failed
// attempt locks an account.
const AuditEventAccountLocked = internalaudit.TypeAccountLocked

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink] over logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
