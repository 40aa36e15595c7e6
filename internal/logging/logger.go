// Package logging defines the minimal structured-logging interface used
// throughout the bot. The single implementation wraps log/slog; tests can
// substitute a recording stub.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// key–value pairs:
//
//	log.Info(ctx, "upload finished", "handle", handle, "uploaded", n)
type Logger interface {
	// Debug logs fine-grained progress detail.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given key–value pairs.
	With(args ...any) Logger
}
