// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Context keys and getter/setter functions live here so values set by
// middleware can be consumed by services without the services importing
// net/http.
//
// Usage in services (read values):
//
//	callerID := requestcontext.CallerID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithCallerID(ctx, callerID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"enrolldesk/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	callerIDKey    struct{}
	roleKey        struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyCallerID    = callerIDKey{}
	ContextKeyRole        = roleKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// CallerID retrieves the authenticated caller ID from the context.
// Returns the empty string if not set.
func CallerID(ctx context.Context) string {
	if callerID, ok := ctx.Value(ContextKeyCallerID).(string); ok {
		return callerID
	}
	return ""
}

// WithCallerID injects a caller ID into the context.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, ContextKeyCallerID, callerID)
}

// Role retrieves the caller role asserted by the identity gate.
// Returns the empty Role if not set.
func Role(ctx context.Context) domain.Role {
	if role, ok := ctx.Value(ContextKeyRole).(domain.Role); ok {
		return role
	}
	return ""
}

// WithRole injects a caller role into the context.
func WithRole(ctx context.Context, role domain.Role) context.Context {
	return context.WithValue(ctx, ContextKeyRole, role)
}

// RequestID retrieves the request ID from the context.
// Returns the empty string if not set.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from the context, falling back to
// time.Now. All timestamps written during one request should come from here
// so a single request observes a single clock reading.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Middleware sets this at
// the start of each request; tests use it to pin the clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
