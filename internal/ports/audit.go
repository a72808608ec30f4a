package ports

import "context"

// AuditLogger is fire-and-forget operational logging. Implementations must
// never fail the primary operation.
type AuditLogger interface {
	LogBusinessEvent(ctx context.Context, name string, data map[string]any)
	LogSecurityEvent(ctx context.Context, name string, data map[string]any)
	LogError(ctx context.Context, name string, data map[string]any)
}
