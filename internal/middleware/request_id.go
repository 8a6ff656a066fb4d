// Package middleware provides the HTTP middleware chain of the chatbot API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type (
	requestIDKey struct{}
	traceIDKey   struct{}
	logFieldsKey struct{}
)

const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"

	maxRequestIDLength = 128
)

// RequestID tags each request with an id, echoed in X-Request-ID. A client
// supplied id is kept if it is at most 128 visible ASCII characters;
// anything else is replaced by a UUID. X-Trace-ID is propagated under the
// same rule but never generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !printableID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)

		if trace := r.Header.Get(TraceIDHeader); printableID(trace) {
			w.Header().Set(TraceIDHeader, trace)
			ctx = context.WithValue(ctx, traceIDKey{}, trace)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func printableID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, c := range []byte(id) {
		if c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GetTraceID returns the propagated trace id, or "".
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}
