package http

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/mediarequest/backend/internal/common/logger"
	"github.com/mediarequest/backend/internal/observability/metrics"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func RecoveryMiddleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"method": r.Method,
					"action": "panic_recovered",
				}).Criticalf("panic recovered: %v\n%s", rec, debug.Stack())
				metrics.PanicsRecovered.Inc()

				WriteError(w, http.StatusInternalServerError, CodeInternalError, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
