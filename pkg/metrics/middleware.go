package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware wraps an http.Handler to record endpoint responses under endpointPath.
func (m *Metrics) Middleware(next http.Handler, endpointPath string) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Default to 200 OK if WriteHeader is not called.
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.EndpointResponses.WithLabelValues(endpointPath, strconv.Itoa(rec.statusCode)).Inc()
	})
}

// InstrumentRoundTripper counts and times outgoing registry requests.
func (m *Metrics) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if m == nil {
		return next
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(m.RegistryRequests,
		promhttp.InstrumentRoundTripperDuration(m.RegistryDuration, next))
}
