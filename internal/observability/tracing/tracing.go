package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InjectTraceID attaches a logger carrying a fresh trace id to ctx.
func InjectTraceID(ctx context.Context) context.Context {
	id := uuid.New().String()
	logger := log.With().Str("traceId", id).Logger()
	return logger.WithContext(ctx)
}

// InjectComponent tags the context logger with the component emitting the logs.
func InjectComponent(ctx context.Context, component string) context.Context {
	logger := log.Ctx(ctx).With().Str("component", component).Logger()
	return logger.WithContext(ctx)
}
