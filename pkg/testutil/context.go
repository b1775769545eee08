package testutil

import (
	"net/http"

	id "profreg/pkg/domain"
	"profreg/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, simulating what the auth
// middleware does for authenticated requests. Invalid IDs are silently
// ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithRole adds a role to the request context.
func WithRole(req *http.Request, role string) *http.Request {
	return req.WithContext(requestcontext.WithUserRole(req.Context(), role))
}

// WithAuth adds both user ID and role to the request context. This is the
// typical state for an authenticated admin request.
func WithAuth(req *http.Request, userID, role string) *http.Request {
	return WithRole(WithUserID(req, userID), role)
}

// WithRequestID adds a request identifier to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
