package audit

import (
	"context"
	"log/slog"
)

// Logger writes business, security, and error audit entries to the shared
// structured log stream.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger.With("module", "audit", "layer", "adapter")}
}

func (l *Logger) LogBusinessEvent(ctx context.Context, name string, data map[string]any) {
	l.logger.InfoContext(ctx, name, attrs("business", data)...)
}

func (l *Logger) LogSecurityEvent(ctx context.Context, name string, data map[string]any) {
	l.logger.WarnContext(ctx, name, attrs("security", data)...)
}

func (l *Logger) LogError(ctx context.Context, name string, data map[string]any) {
	l.logger.ErrorContext(ctx, name, attrs("error", data)...)
}

func attrs(category string, data map[string]any) []any {
	out := make([]any, 0, 2+2*len(data))
	out = append(out, "audit_category", category)
	for key, value := range data {
		out = append(out, key, value)
	}
	return out
}
