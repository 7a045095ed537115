package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/auth"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// CreateInteraction handles POST /events/{id}/interactions
func (h *Handler) CreateInteraction(w http.ResponseWriter, r *http.Request) {
	var req model.CreateInteractionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in, err := h.interactions.Create(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req, requestMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, in)
}

// ListInteractions handles GET /events/{id}/interactions?type=&moderated=
func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeModerated, _ := strconv.ParseBool(q.Get("moderated"))

	list, err := h.interactions.List(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"),
		model.InteractionType(q.Get("type")), includeModerated)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Interaction{}
	}

	writeJSON(w, http.StatusOK, list)
}

// InteractionStats handles GET /events/{id}/interactions/stats
func (h *Handler) InteractionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.interactions.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ModerateInteraction handles POST /interactions/{iid}/moderate
func (h *Handler) ModerateInteraction(w http.ResponseWriter, r *http.Request) {
	var req model.ModerateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in, err := h.interactions.Moderate(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "iid"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, in)
}

// BulkModerate handles POST /interactions/moderate
func (h *Handler) BulkModerate(w http.ResponseWriter, r *http.Request) {
	var req model.BulkModerateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	results, err := h.interactions.BulkModerate(r.Context(), auth.PrincipalFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// DeleteInteraction handles DELETE /interactions/{iid}
func (h *Handler) DeleteInteraction(w http.ResponseWriter, r *http.Request) {
	if err := h.interactions.Delete(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "iid")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SystemStats handles GET /admin/stats
func (h *Handler) SystemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.SystemStats(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// EventAnalytics handles GET /admin/events/{id}/analytics
func (h *Handler) EventAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.admin.EventAnalytics(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}
