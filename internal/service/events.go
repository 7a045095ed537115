package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/cache"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/policy"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// EventService orchestrates event-related business operations.
type EventService struct {
	events  EventStore
	members MemberStore
	views   *cache.EventViews
	log     *zap.Logger
	now     func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, members MemberStore, views *cache.EventViews, log *zap.Logger) *EventService {
	return &EventService{
		events:  events,
		members: members,
		views:   views,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateEvent validates the request and stores a new event owned by p.
func (s *EventService) CreateEvent(ctx context.Context, p *model.Principal, req model.CreateEventRequest) (*model.Event, error) {
	if err := policy.Require(p, policy.EventCreate, policy.Scope{}); err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := checkEventRules(req); err != nil {
		return nil, err
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	ev := &model.Event{
		OwnerID:              p.ID,
		Title:                req.Title,
		Description:          req.Description,
		Location:             req.Location,
		Tags:                 req.Tags,
		ImageURL:             req.ImageURL,
		StartAt:              req.StartAt.UTC(),
		EndAt:                utcPtr(req.EndAt),
		IsPublic:             isPublic,
		MaxAttendees:         req.MaxAttendees,
		AllowWaitlist:        req.AllowWaitlist,
		RegistrationDeadline: utcPtr(req.RegistrationDeadline),
		CustomFields:         req.CustomFields,
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info("event created", zap.String("event_id", ev.ID), zap.String("owner_id", ev.OwnerID))
	return ev, nil
}

// checkEventRules enforces the cross-field rules struct tags cannot express.
func checkEventRules(req model.CreateEventRequest) error {
	verr := &model.ValidationError{}
	if req.EndAt != nil && req.EndAt.Before(req.StartAt) {
		verr.Add("end_at", "must not be before start_at")
	}
	if req.RegistrationDeadline != nil && req.RegistrationDeadline.After(req.StartAt) {
		verr.Add("registration_deadline", "must not be after start_at")
	}
	seen := make(map[string]bool, len(req.CustomFields))
	for i, f := range req.CustomFields {
		if f.Type == "select" && len(f.Options) == 0 {
			verr.Add(fmt.Sprintf("custom_fields[%d].options", i), "select fields need at least one option")
		}
		if seen[f.Name] {
			verr.Add(fmt.Sprintf("custom_fields[%d].name", i), "must be unique")
		}
		seen[f.Name] = true
	}
	return verr.OrNil()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// GetPublicEvent returns the public view of an event with live availability.
func (s *EventService) GetPublicEvent(ctx context.Context, id string) (*model.PublicEvent, error) {
	return s.views.Get(ctx, id, func(ctx context.Context) (*model.PublicEvent, error) {
		ev, err := s.events.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ev.IsPublic {
			return nil, model.ErrEventNotPublic
		}
		avail, err := s.events.Availability(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load availability: %w", err)
		}
		return publicView(ev, avail, s.now()), nil
	})
}

func publicView(ev *model.Event, avail model.Availability, now time.Time) *model.PublicEvent {
	active := avail.Registered + avail.CheckedIn
	view := &model.PublicEvent{
		Event:                *ev,
		CurrentRegistrations: active,
		WaitlistedCount:      avail.Waitlisted,
		IsRegistrationOpen:   !ev.DeadlinePassed(now),
	}
	if ev.MaxAttendees != nil {
		spots := max(0, *ev.MaxAttendees-active)
		view.AvailableSpots = &spots
		view.IsFull = active >= *ev.MaxAttendees
	}
	return view
}

// SearchEvents returns one page of public events matching f.
func (s *EventService) SearchEvents(ctx context.Context, f model.EventFilter) (*model.EventPage, error) {
	if f.Limit == 0 {
		f.Limit = defaultSearchLimit
	}
	verr := &model.ValidationError{}
	if f.Limit < 1 || f.Limit > maxSearchLimit {
		verr.Add("limit", fmt.Sprintf("must be between 1 and %d", maxSearchLimit))
	}
	if f.Offset < 0 {
		verr.Add("offset", "must not be negative")
	}
	if f.StartFrom != nil && f.StartTo != nil && f.StartTo.Before(*f.StartFrom) {
		verr.Add("start_to", "must not be before start_from")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	f.Query = strings.TrimSpace(f.Query)

	events, total, err := s.events.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	totalPages := (total + f.Limit - 1) / f.Limit
	return &model.EventPage{
		Events:     events,
		Total:      total,
		Page:       f.Offset/f.Limit + 1,
		TotalPages: totalPages,
		HasMore:    f.Offset+len(events) < total,
	}, nil
}

// AddMember assigns a user to the event's staff.
func (s *EventService) AddMember(ctx context.Context, p *model.Principal, eventID string, req model.AddMemberRequest) (*model.EventMember, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := authorizeEvent(ctx, s.members, p, policy.EventManageMembers, ev); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Role == "" {
		req.Role = model.MemberStaff
	}

	m := &model.EventMember{
		EventID: eventID,
		UserID:  req.UserID,
		Role:    req.Role,
		AddedBy: p.ID,
		AddedAt: s.now(),
	}
	if err := s.members.Add(ctx, m); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return m, nil
}

// ListMembers returns the event's staff.
func (s *EventService) ListMembers(ctx context.Context, p *model.Principal, eventID string) ([]model.EventMember, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := authorizeEvent(ctx, s.members, p, policy.EventManageMembers, ev); err != nil {
		return nil, err
	}
	members, err := s.members.List(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
