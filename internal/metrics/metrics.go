// Package metrics defines the service's Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// Metrics holds every collector. The zero value is not usable; call New.
type Metrics struct {
	registrations *prometheus.CounterVec
	promotions    prometheus.Counter
	checkIns      *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	gatherer      prometheus.Gatherer
}

// New registers the collectors with reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventrsvp_registrations_total",
			Help: "RSVP submissions by outcome.",
		}, []string{"outcome"}),
		promotions: f.NewCounter(prometheus.CounterOpts{
			Name: "eventrsvp_waitlist_promotions_total",
			Help: "Waitlisted registrations promoted to a seat.",
		}),
		checkIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventrsvp_checkins_total",
			Help: "Check-in attempts by result.",
		}, []string{"result"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventrsvp_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}
}

// Outcome maps the result of an RSVP submission to a label value.
func Outcome(status model.RegistrationStatus, err error) string {
	switch {
	case err == nil && status == model.StatusWaitlisted:
		return "waitlisted"
	case err == nil:
		return "registered"
	case errors.Is(err, model.ErrEventFull):
		return "full"
	case errors.Is(err, model.ErrDeadlineExpired):
		return "deadline_expired"
	case errors.Is(err, model.ErrDuplicateRegistration):
		return "duplicate"
	default:
		return "error"
	}
}

// ObserveRegistration counts one RSVP submission.
func (m *Metrics) ObserveRegistration(status model.RegistrationStatus, err error) {
	m.registrations.WithLabelValues(Outcome(status, err)).Inc()
}

// ObservePromotion counts one waitlist promotion.
func (m *Metrics) ObservePromotion() { m.promotions.Inc() }

// ObserveCheckIn counts one check-in attempt.
func (m *Metrics) ObserveCheckIn(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.checkIns.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled by the matched chi route, so
// path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
