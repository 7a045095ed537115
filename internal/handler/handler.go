// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/service"
)

// Handler holds all HTTP handlers for the RSVP API.
type Handler struct {
	events        *service.EventService
	registrations *service.RegistrationService
	interactions  *service.InteractionService
	admin         *service.AdminService
	log           *zap.Logger
}

// New constructs a Handler.
func New(
	events *service.EventService,
	registrations *service.RegistrationService,
	interactions *service.InteractionService,
	admin *service.AdminService,
	log *zap.Logger,
) *Handler {
	return &Handler{
		events:        events,
		registrations: registrations,
		interactions:  interactions,
		admin:         admin,
		log:           log,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeBody decodes the request body into dst, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes. Zero means the error is
// not a domain error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrEventFull), errors.Is(err, model.ErrDuplicateRegistration):
		return http.StatusConflict
	case errors.Is(err, model.ErrDeadlineExpired):
		return http.StatusGone
	case errors.Is(err, model.ErrRegistrationNotEligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrForbidden), errors.Is(err, model.ErrEventNotPublic):
		return http.StatusForbidden
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return 0
}

// writeServiceError translates a service error into a response. Anything
// that is not a domain error is logged and answered with 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}
	if status := statusFor(err); status != 0 {
		writeError(w, status, err.Error())
		return
	}
	h.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// requestMeta records where a request came from.
func requestMeta(r *http.Request) model.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		source = "web"
	}
	return model.RequestMeta{Source: source, IPAddress: ip, UserAgent: r.UserAgent()}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
