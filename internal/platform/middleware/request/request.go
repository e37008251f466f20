// Package request provides middleware that assigns a request ID to every
// incoming HTTP request. An X-Request-ID header supplied by the caller is
// honored so IDs survive proxy hops, otherwise a fresh UUID is generated.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"enrolldesk/pkg/requestcontext"
)

const headerName = "X-Request-ID"

// Middleware attaches a request ID to the context and echoes it back in the
// response headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerName)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerName, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context, or "" when absent.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
