package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "pawwalk/pkg/errors"
	httputil "pawwalk/pkg/http"
	"pawwalk/pkg/logger"
)

// Recovery turns a panic in a handler into a 500 with the standard error body.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				log.Error("Panic recovered",
					"request_id", RequestIDFrom(r.Context()),
					"error", p,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				_ = httputil.WriteError(w, apperrors.Internal("Internal server error", fmt.Errorf("panic: %v", p)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
