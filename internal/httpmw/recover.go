package httpmw

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/keithlinneman/jslearn-web/internal/log"
	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

// Recover turns a handler panic into a logged error and a 500 response.
// onPanic, if set, runs after logging (e.g. to bump a counter).
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recover(L log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if L == nil {
		L = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				L.With(
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
				).Error(r.Context(), xerrors.WithStack(err), "httpserver panic recovered",
					"panic.stack", string(debug.Stack()),
				)
				if onPanic != nil {
					onPanic()
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
