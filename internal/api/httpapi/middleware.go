package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/oshokin/camera-funnel/internal/logger"
)

// RequestLogger scopes the request context logger and logs one line per request.
func RequestLogger(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startedAt := time.Now()

			ctx := logger.WithName(r.Context(), name)
			ctx = logger.WithKV(ctx, "request_id", middleware.GetReqID(ctx))

			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			logger.DebugKV(
				ctx,
				"HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.Status(),
				"bytes", wrapped.BytesWritten(),
				"duration", time.Since(startedAt),
			)
		})
	}
}

// RecoverJSON converts a panic into the {error, message} response shape.
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			if recovered == http.ErrAbortHandler { //nolint:errorlint // net/http compares the sentinel by identity.
				panic(recovered)
			}

			logger.ErrorKV(r.Context(), "Panic recovered", "panic", fmt.Sprint(recovered), "path", r.URL.Path)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   true,
				"message": "Internal server error",
			})
		}()

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
