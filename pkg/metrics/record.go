package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// RecordExtraction records one extraction pass.
func (r *Registry) RecordExtraction(calc string, records, failures, purged int) {
	r.ExtractRecords.WithLabelValues(calc).Observe(float64(records))
	r.ExtractFailures.WithLabelValues(calc).Add(float64(failures))
	r.OverlaysPurged.Add(float64(purged))
}

// RecordCalculation records a finished calculation.
func (r *Registry) RecordCalculation(calc string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.CalculationsTotal.WithLabelValues(calc, status).Inc()
	r.CalculationDuration.WithLabelValues(calc).Observe(d.Seconds())
}

// RecordNotice counts a notice of the given severity.
func (r *Registry) RecordNotice(severity string) {
	r.NoticesTotal.WithLabelValues(severity).Inc()
}

// RecordOverlays counts result overlays added to a diagram.
func (r *Registry) RecordOverlays(n int) {
	r.OverlaysRendered.Add(float64(n))
}

// SetBreakerState publishes the solver breaker state.
func (r *Registry) SetBreakerState(state int) {
	r.SolverBreakerState.Set(float64(state))
}

// RecordSolver records one solver round trip.
func (r *Registry) RecordSolver(transport string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.SolverRequestsTotal.WithLabelValues(transport, status).Inc()
	r.SolverDuration.WithLabelValues(transport).Observe(d.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware counts and times requests.
func (r *Registry) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)
		r.HTTPRequestsTotal.WithLabelValues(req.Method, req.URL.Path, strconv.Itoa(sw.status)).Inc()
		r.HTTPRequestDuration.WithLabelValues(req.Method, req.URL.Path).Observe(time.Since(start).Seconds())
	})
}
