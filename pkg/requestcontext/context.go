// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http.
package requestcontext

import (
	"context"
	"time"

	id "profreg/pkg/domain"
)

type (
	userIDKey      struct{}
	userRoleKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// WithUserID stores the authenticated user's ID.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user's ID, or the nil ID when the request
// is unauthenticated.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserRole stores the authenticated user's role string.
func WithUserRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, userRoleKey{}, role)
}

// UserRole returns the authenticated user's role, or "".
func UserRole(ctx context.Context) string {
	if role, ok := ctx.Value(userRoleKey{}).(string); ok {
		return role
	}
	return ""
}

// WithRequestID stores the request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request identifier, or "".
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// WithTime stores the request-scoped timestamp.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the request-scoped timestamp, falling back to time.Now so
// callers outside a request still get a usable value.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
