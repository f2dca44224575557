// Package trace carries a request id in the context and prefixes it to every log line.
package trace

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
)

type ctxKey int

const traceIDKey ctxKey = 0

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func prefix(ctx context.Context, format string, args ...any) string {
	id := TraceID(ctx)
	if id == "" {
		id = "-"
	}
	return fmt.Sprintf("TRACE=%s | %s", id, fmt.Sprintf(format, args...))
}

func Debugf(ctx context.Context, format string, args ...any) {
	hlog.CtxDebugf(ctx, "%s", prefix(ctx, format, args...))
}

func Infof(ctx context.Context, format string, args ...any) {
	hlog.CtxInfof(ctx, "%s", prefix(ctx, format, args...))
}

func Warnf(ctx context.Context, format string, args ...any) {
	hlog.CtxWarnf(ctx, "%s", prefix(ctx, format, args...))
}

func Errorf(ctx context.Context, format string, args ...any) {
	hlog.CtxErrorf(ctx, "%s", prefix(ctx, format, args...))
}

// SetLevel applies a config level name (trace, debug, info, notice, warn, error, fatal).
func SetLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		hlog.SetLevel(hlog.LevelTrace)
	case "debug":
		hlog.SetLevel(hlog.LevelDebug)
	case "", "info":
		hlog.SetLevel(hlog.LevelInfo)
	case "notice":
		hlog.SetLevel(hlog.LevelNotice)
	case "warn", "warning":
		hlog.SetLevel(hlog.LevelWarn)
	case "error":
		hlog.SetLevel(hlog.LevelError)
	case "fatal":
		hlog.SetLevel(hlog.LevelFatal)
	default:
		return fmt.Errorf("unknown log level: %q", level)
	}
	return nil
}
