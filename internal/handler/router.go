package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/auth"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/metrics"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/telemetry"
)

// RouterConfig carries what NewRouter needs besides the handlers.
type RouterConfig struct {
	ServiceName string
	Verifier    *auth.Verifier
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(telemetry.Middleware(cfg.ServiceName))
	r.Use(cfg.Metrics.Middleware)
	r.Use(Logger(cfg.Logger)) // structured access log
	r.Use(CORS)
	r.Use(Authenticate(cfg.Verifier))

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", cfg.Metrics.Handler())

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.SearchEvents)
		r.With(RequireAuth).Post("/", h.CreateEvent)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Post("/rsvp", h.RSVP)
			r.Post("/rsvp/cancel", h.CancelRSVP)
			r.Get("/interactions", h.ListInteractions)
			r.Post("/interactions", h.CreateInteraction)
			r.Get("/interactions/stats", h.InteractionStats)

			r.Group(func(r chi.Router) {
				r.Use(RequireAuth)
				r.Get("/registrations", h.ListRegistrations)
				r.Post("/registrations/{pid}/cancel", h.CancelRegistration)
				r.Post("/checkin", h.CheckIn)
				r.Post("/checkout", h.CheckOut)
				r.Post("/checkin/bulk", h.BulkCheckIn)
				r.Get("/checkin/stats", h.CheckInStats)
				r.Get("/members", h.ListMembers)
				r.Post("/members", h.AddMember)
			})
		})
	})

	r.Route("/interactions", func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/moderate", h.BulkModerate)
		r.Post("/{iid}/moderate", h.ModerateInteraction)
		r.Delete("/{iid}", h.DeleteInteraction)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAuth)
		r.Get("/stats", h.SystemStats)
		r.Get("/events/{id}/analytics", h.EventAnalytics)
	})

	return r
}
