package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TraceIDHeader lets callers correlate their request with our logs
const TraceIDHeader = "X-Trace-Id"

type traceID struct{}

// InjectTraceID attaches a freshly generated trace id to the context logger
func InjectTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, "")
}

// WithTraceID attaches id to the context logger. An empty or malformed id is
// replaced by a generated one.
func WithTraceID(ctx context.Context, id string) context.Context {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}
	ctx = context.WithValue(ctx, traceID{}, id)
	logger := log.With().Str("traceId", id).Logger()
	return logger.WithContext(ctx)
}

// TraceID returns the trace id carried by ctx, if any
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceID{}).(string)
	return id
}
