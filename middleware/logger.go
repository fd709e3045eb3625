package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matthewgetz/rotini-sub000/internal/ctxlog"
)

// InvocationIDKey is the metadata key the Logger stores the invocation id under
const InvocationIDKey = "logger.invocation_id"

// Logger logs handler start and completion through the slog.Logger carried by
// the invocation context. Each invocation gets a fresh id stored under
// InvocationIDKey. Successful completions log at level, failures at Error.
func Logger(level slog.Level) Middleware {
	return func(next ActionFunc) ActionFunc {
		return func(inv Invocation) (any, error) {
			ctx := inv.Context()
			id := uuid.NewString()
			inv.Set(InvocationIDKey, id)

			logger := ctxlog.FromContext(ctx).With(
				slog.String("invocation_id", id),
				slog.String("command", getCommandName(inv)),
			)
			logger.DebugContext(ctx, "handler started")

			start := time.Now()
			value, err := next(inv)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "handler failed",
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()))
				return value, err
			}

			logger.Log(ctx, level, "handler finished", slog.Duration("duration", elapsed))
			return value, nil
		}
	}
}
