package sessionguard

import (
	"context"
	"time"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, account int64, ip string) {
	if e == nil || e.audit == nil {
		return
	}
	if ip == "" {
		ip = ClientIPFromContext(ctx)
	}

	e.audit.Emit(ctx, AuditEvent{
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Account:   account,
		IP:        ip,
	})
}
