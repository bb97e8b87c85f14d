package logging

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const requestScopeKey contextKey = "requestScope"

// requestScope collects ids learned while a request is routed, so the
// completion line can carry them
type requestScope struct {
	mu     sync.Mutex
	viewID string
}

func (s *requestScope) view() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewID
}

// TagView marks the request behind ctx as addressing a view. Later log lines
// on the returned context carry the view, and so does the request's
// completion line.
func TagView(ctx context.Context, viewID string) context.Context {
	if scope, ok := ctx.Value(requestScopeKey).(*requestScope); ok {
		scope.mu.Lock()
		scope.viewID = viewID
		scope.mu.Unlock()
	}
	return WithViewID(ctx, viewID)
}

// RequestIDMiddleware tags each request with an id (taken from X-Request-ID
// when the client sent one) and logs its outcome
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		scope := &requestScope{}
		ctx := context.WithValue(WithRequestID(r.Context(), requestID), requestScopeKey, scope)
		rec := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		DebugContext(ctx, "request started", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)

		next.ServeHTTP(rec, r.WithContext(ctx))

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"bytes", rec.written,
			"durationMs", time.Since(start).Milliseconds(),
		}
		if viewID := scope.view(); viewID != "" {
			ctx = WithViewID(ctx, viewID)
		}
		level, msg := outcome(rec.statusCode)
		current().Log(ctx, level, msg, withContextIDs(ctx, args)...)
	})
}

// outcome maps a response status to a log level and message
func outcome(status int) (slog.Level, string) {
	switch {
	case status >= 500:
		return slog.LevelError, "request failed"
	case status >= 400:
		return slog.LevelWarn, "request rejected"
	}
	return slog.LevelInfo, "request completed"
}

// responseWriter records the status code and body size of a response
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.written += n
	return n, err
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
