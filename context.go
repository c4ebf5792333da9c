package sessionguard

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. RecordFailedAttempt
// uses it for the lockout audit event when no IP is passed explicitly.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the IP attached by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
