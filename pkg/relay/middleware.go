package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Completer answers a player's prompt. It always returns displayable text.
type Completer interface {
	Complete(ctx context.Context, prompt, player string) string
}

// CompleterFunc adapts a plain function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt, player string) string

// Complete calls the underlying function.
func (f CompleterFunc) Complete(ctx context.Context, prompt, player string) string {
	return f(ctx, prompt, player)
}

// Middleware wraps a Completer, returning a new Completer with added behaviour.
type Middleware func(next Completer) Completer

// Chain applies middlewares so the first one is outermost.
func Chain(c Completer, mws ...Middleware) Completer {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}

	return c
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the query's request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// --- Timeout middleware ---

// Timeout returns a Middleware that bounds each query with a deadline.
func Timeout(d time.Duration) Middleware {
	return func(next Completer) Completer {
		return CompleterFunc(func(ctx context.Context, prompt, player string) string {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next.Complete(ctx, prompt, player)
		})
	}
}

// --- Recovery middleware ---

// Recovery returns a Middleware that turns a panicking backend into an error
// reply.
func Recovery(log *slog.Logger) Middleware {
	return func(next Completer) Completer {
		return CompleterFunc(func(ctx context.Context, prompt, player string) (reply string) {
			defer func() {
				if r := recover(); r != nil {
					log.ErrorContext(ctx, "ai query panicked",
						"request_id", RequestID(ctx),
						"player", player,
						"panic", fmt.Sprint(r),
					)
					reply = InternalErrorNotice
				}
			}()

			return next.Complete(ctx, prompt, player)
		})
	}
}

// --- Logger middleware ---

// Logger returns a Middleware that logs query start and duration.
func Logger(log *slog.Logger) Middleware {
	return func(next Completer) Completer {
		return CompleterFunc(func(ctx context.Context, prompt, player string) string {
			id := RequestID(ctx)

			log.InfoContext(ctx, "ai query started", "request_id", id, "player", player, "prompt", prompt)

			start := time.Now()

			reply := next.Complete(ctx, prompt, player)

			log.InfoContext(ctx, "ai query finished",
				"request_id", id,
				"player", player,
				"duration", time.Since(start),
			)

			return reply
		})
	}
}
