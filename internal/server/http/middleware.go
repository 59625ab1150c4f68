package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rzbill/flodiag/internal/selfdiag"
	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware writes a Debug "request started" event for every request and
// an Error "request failed" event for responses with status 500 or above.
func Middleware(l *selfdiag.Listener, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.OnEvent(selfdiag.Event{
			Level:   logpkg.DebugLevel,
			Message: "request started",
			Payload: []any{r.Method, r.URL.Path},
		})
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusInternalServerError {
			l.OnEvent(selfdiag.Event{
				Level:   logpkg.ErrorLevel,
				Message: "request failed",
				Payload: []any{r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start)},
			})
		}
	})
}
