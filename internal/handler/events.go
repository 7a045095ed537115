package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/auth"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// CreateEvent handles POST /events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	event, err := h.events.CreateEvent(r.Context(), auth.PrincipalFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// SearchEvents handles GET /events
// Query parameters: q, tags (comma separated), location, start_from,
// start_to (RFC 3339), limit, offset.
func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	page, err := h.events.SearchEvents(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func parseEventFilter(q url.Values) (model.EventFilter, error) {
	f := model.EventFilter{
		Query:    q.Get("q"),
		Location: q.Get("location"),
	}
	if raw := q.Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}

	verr := &model.ValidationError{}
	parseInt := func(key string, dst *int) {
		if raw := q.Get(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				verr.Add(key, "must be an integer")
				return
			}
			*dst = n
		}
	}
	parseTime := func(key string) *time.Time {
		raw := q.Get(key)
		if raw == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			verr.Add(key, "must be an RFC 3339 timestamp")
			return nil
		}
		return &t
	}
	parseInt("limit", &f.Limit)
	parseInt("offset", &f.Offset)
	f.StartFrom = parseTime("start_from")
	f.StartTo = parseTime("start_to")
	return f, verr.OrNil()
}

// GetEvent handles GET /events/{id}
// Returns the public view of an event with live availability.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetPublicEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// AddMember handles POST /events/{id}/members
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req model.AddMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}

	member, err := h.events.AddMember(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

// ListMembers handles GET /events/{id}/members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.events.ListMembers(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}
