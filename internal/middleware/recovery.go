package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

const msgInternalError = "서버 내부 오류가 발생했습니다."

// Recoverer turns a handler panic into a logged 500 {"detail"} response.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				logger.ErrorContext(r.Context(), "panic recovered",
					"request_id", GetRequestID(r.Context()),
					"endpoint", r.Method+" "+r.URL.Path,
					"panic", v,
					"stack", string(debug.Stack()),
				)
				writeDetail(w, http.StatusInternalServerError, msgInternalError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
