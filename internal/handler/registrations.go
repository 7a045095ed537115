package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/auth"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// RSVP handles POST /events/{id}/rsvp
// Registers the submitter, or waitlists them when the event is full.
func (h *Handler) RSVP(w http.ResponseWriter, r *http.Request) {
	var req model.RSVPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.registrations.RSVP(r.Context(), chi.URLParam(r, "id"), req, requestMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// CancelRSVP handles POST /events/{id}/rsvp/cancel
// Lets a participant withdraw their own RSVP.
func (h *Handler) CancelRSVP(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRSVPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.registrations.CancelOwn(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// CancelRegistration handles POST /events/{id}/registrations/{pid}/cancel
func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	res, err := h.registrations.Cancel(r.Context(), auth.PrincipalFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "pid"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ListRegistrations handles GET /events/{id}/registrations
// Waitlisted registrations are included with ?waitlist=true.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	includeWaitlist, _ := strconv.ParseBool(r.URL.Query().Get("waitlist"))

	regs, err := h.registrations.ListRegistrations(r.Context(), auth.PrincipalFrom(r.Context()),
		chi.URLParam(r, "id"), includeWaitlist)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if regs == nil {
		regs = []model.RegistrationView{}
	}

	writeJSON(w, http.StatusOK, regs)
}

// CheckIn handles POST /events/{id}/checkin
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req model.CheckInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reg, err := h.registrations.CheckIn(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// CheckOut handles POST /events/{id}/checkout
// Marks a checked-in participant as a no-show.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req model.CheckInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reg, err := h.registrations.CheckOut(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// BulkCheckIn handles POST /events/{id}/checkin/bulk
func (h *Handler) BulkCheckIn(w http.ResponseWriter, r *http.Request) {
	var req model.BulkCheckInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	results, err := h.registrations.BulkCheckIn(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// CheckInStats handles GET /events/{id}/checkin/stats
func (h *Handler) CheckInStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registrations.CheckInStats(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
