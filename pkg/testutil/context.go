package testutil

import (
	"net/http"
	"time"

	"verivote/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped clock on a request.
// This simulates what the requesttime middleware would do.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithClientMetadata adds client IP and User-Agent to the request context.
// This simulates what the metadata middleware would do.
func WithClientMetadata(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}

// WithCorrelationID adds a transport correlation ID to the request context.
func WithCorrelationID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}
