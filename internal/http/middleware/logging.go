package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"campus-market/internal/logger"
)

type logOptions struct {
	skips map[string]struct{}
}

// LogOption configures LogRequests.
type LogOption func(*logOptions)

// WithSkips leaves the given paths out of the request log.
func WithSkips(paths ...string) LogOption {
	return func(o *logOptions) {
		for _, p := range paths {
			o.skips[p] = struct{}{}
		}
	}
}

// statusRecorder captures the status code written by the next handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer, which the
// websocket upgrade needs.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to a websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// LogRequests logs method, path, status and latency of every request.
func LogRequests(opts ...LogOption) func(http.Handler) http.Handler {
	o := logOptions{skips: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&o)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := o.skips[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			logger.Infof("%s %s %d %dB %s", r.Method, r.URL.RequestURI(), rec.code(), rec.bytes, time.Since(start).Round(time.Microsecond))
		})
	}
}
