package web

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/AnkitM1410/Clawbook-Human/internal/observability"
	"github.com/AnkitM1410/Clawbook-Human/internal/tracing"
)

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Hijack forwards to the underlying writer so the event stream can
// upgrade to a websocket through the middleware chain.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rec.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// withMiddleware wraps the mux with the cross-cutting request
// handling: the shutdown guard, in-flight tracking, trace propagation
// and request metrics. The route label comes from the mux pattern so
// per-key paths do not explode the metric cardinality.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		startTime := time.Now()
		ctx := tracing.NewRequestContext(r.Context())
		r = r.WithContext(ctx)
		w.Header().Set("X-Trace-ID", tracing.GetTraceID(ctx))

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		// The mux fills in r.Pattern while routing this same request.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		duration := time.Since(startTime)
		observability.RecordHTTPRequest(route, r.Method, recorder.status, duration)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", recorder.status).
			Dur("duration", duration).
			Str("trace_id", tracing.GetTraceID(ctx)).
			Msg("Request handled")
	})
}
