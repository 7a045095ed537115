package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/cache"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/capacity"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/metrics"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/policy"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/publisher"
)

// RegistrationService runs RSVPs, cancellations and check-ins through the
// capacity manager and fans the results out to the publisher, metrics and
// the public view cache.
type RegistrationService struct {
	events        EventStore
	participants  ParticipantStore
	registrations RegistrationReader
	members       MemberStore
	manager       *capacity.Manager
	views         *cache.EventViews
	pub           publisher.Publisher
	metrics       *metrics.Metrics
	log           *zap.Logger
	now           func() time.Time
}

// RegistrationDeps groups the collaborators of a RegistrationService.
type RegistrationDeps struct {
	Events        EventStore
	Participants  ParticipantStore
	Registrations RegistrationReader
	Members       MemberStore
	Manager       *capacity.Manager
	Views         *cache.EventViews
	Publisher     publisher.Publisher
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(d RegistrationDeps) *RegistrationService {
	return &RegistrationService{
		events:        d.Events,
		participants:  d.Participants,
		registrations: d.Registrations,
		members:       d.Members,
		manager:       d.Manager,
		views:         d.Views,
		pub:           d.Publisher,
		metrics:       d.Metrics,
		log:           d.Logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RSVP registers the submitter for a public event, or waitlists them when
// the event is full and allows a waitlist.
func (s *RegistrationService) RSVP(ctx context.Context, eventID string, req model.RSVPRequest, meta model.RequestMeta) (_ *model.RSVPResult, err error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsPublic {
		return nil, model.ErrEventNotPublic
	}
	if err := checkCustomFields(ev.CustomFields, req.CustomFieldResponses); err != nil {
		return nil, err
	}

	var reg *model.Registration
	defer func() {
		var status model.RegistrationStatus
		if reg != nil {
			status = reg.Status
		}
		s.metrics.ObserveRegistration(status, err)
	}()

	// Rejected here to avoid touching the participant; the manager checks
	// again under the event lock.
	if ev.DeadlinePassed(s.now()) {
		return nil, model.ErrDeadlineExpired
	}

	participant := &model.Participant{
		Name:                 req.Name,
		Email:                req.Email,
		Phone:                req.Phone,
		Notes:                req.Notes,
		CustomFieldResponses: req.CustomFieldResponses,
	}
	if err := s.participants.Upsert(ctx, participant); err != nil {
		return nil, fmt.Errorf("upsert participant: %w", err)
	}

	reg, err = s.manager.Submit(ctx, eventID, participant.ID, meta)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, publisher.NewEvent(publisher.TypeForSubmit(reg), reg))
	s.views.Invalidate(ctx, eventID)
	s.log.Info("rsvp accepted",
		zap.String("event_id", eventID),
		zap.String("participant_id", participant.ID),
		zap.String("status", string(reg.Status)),
	)
	return &model.RSVPResult{
		Status:           reg.Status,
		WaitlistPosition: reg.WaitlistPosition,
		RegistrationID:   reg.ID,
		ParticipantID:    participant.ID,
	}, nil
}

// checkCustomFields verifies required fields are answered and select answers
// are among the field's options.
func checkCustomFields(fields []model.CustomField, responses []model.CustomFieldResponse) error {
	answers := make(map[string]any, len(responses))
	for _, r := range responses {
		answers[r.FieldName] = r.Value
	}
	verr := &model.ValidationError{}
	for _, f := range fields {
		v, ok := answers[f.Name]
		answered := ok && v != nil && v != ""
		if f.Required && !answered {
			verr.Add("custom_field_responses."+f.Name, "is required")
			continue
		}
		if answered && f.Type == "select" {
			str, isString := v.(string)
			if !isString || !slices.Contains(f.Options, str) {
				verr.Add("custom_field_responses."+f.Name, "must be one of: "+strings.Join(f.Options, " "))
			}
		}
	}
	return verr.OrNil()
}

// CancelOwn lets a participant withdraw their own RSVP. The email must match
// the participant's.
func (s *RegistrationService) CancelOwn(ctx context.Context, eventID string, req model.CancelRSVPRequest) (*model.CancelResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	participant, err := s.participants.GetByID(ctx, req.ParticipantID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(participant.Email, strings.TrimSpace(req.Email)) {
		return nil, model.ErrForbidden
	}
	return s.cancel(ctx, eventID, req.ParticipantID)
}

// Cancel cancels a participant's registration on behalf of event staff.
func (s *RegistrationService) Cancel(ctx context.Context, p *model.Principal, eventID, participantID string) (*model.CancelResult, error) {
	if err := s.authorize(ctx, p, policy.RegistrationManage, eventID); err != nil {
		return nil, err
	}
	return s.cancel(ctx, eventID, participantID)
}

func (s *RegistrationService) cancel(ctx context.Context, eventID, participantID string) (*model.CancelResult, error) {
	t, err := s.manager.Cancel(ctx, eventID, participantID)
	if err != nil {
		return nil, err
	}

	events := []publisher.Event{publisher.NewEvent(publisher.Cancelled, t.Registration)}
	if t.Promoted != nil {
		s.metrics.ObservePromotion()
		events = append(events, publisher.NewEvent(publisher.Promoted, t.Promoted))
		s.log.Info("waitlist promotion",
			zap.String("event_id", eventID),
			zap.String("registration_id", t.Promoted.ID),
			zap.String("participant_id", t.Promoted.ParticipantID),
		)
	}
	s.publish(ctx, events...)
	s.views.Invalidate(ctx, eventID)
	return &model.CancelResult{Registration: t.Registration, Promoted: t.Promoted}, nil
}

// CheckIn marks a participant as attending.
func (s *RegistrationService) CheckIn(ctx context.Context, p *model.Principal, eventID string, req model.CheckInRequest) (*model.Registration, error) {
	if err := s.authorize(ctx, p, policy.CheckInManage, eventID); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	reg, err := s.manager.CheckIn(ctx, eventID, req.ParticipantID)
	s.metrics.ObserveCheckIn(err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, publisher.NewEvent(publisher.CheckedIn, reg))
	s.views.Invalidate(ctx, eventID)
	return reg, nil
}

// CheckOut marks a checked-in participant as a no-show.
func (s *RegistrationService) CheckOut(ctx context.Context, p *model.Principal, eventID string, req model.CheckInRequest) (*model.Registration, error) {
	if err := s.authorize(ctx, p, policy.CheckInManage, eventID); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	reg, err := s.manager.NoShow(ctx, eventID, req.ParticipantID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, publisher.NewEvent(publisher.NoShow, reg))
	s.views.Invalidate(ctx, eventID)
	return reg, nil
}

// BulkCheckIn checks in each listed participant and reports per-item results.
func (s *RegistrationService) BulkCheckIn(ctx context.Context, p *model.Principal, eventID string, req model.BulkCheckInRequest) ([]model.BulkResult, error) {
	if err := s.authorize(ctx, p, policy.CheckInManage, eventID); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	outcomes := s.manager.BulkCheckIn(ctx, eventID, req.ParticipantIDs)
	results := make([]model.BulkResult, 0, len(outcomes))
	var events []publisher.Event
	for _, o := range outcomes {
		s.metrics.ObserveCheckIn(o.Err)
		res := model.BulkResult{ID: o.ParticipantID, Success: o.Err == nil}
		switch {
		case o.Err == nil:
			events = append(events, publisher.NewEvent(publisher.CheckedIn, o.Registration))
		case capacity.IsStateError(o.Err):
			res.Error = o.Err.Error()
		default:
			s.log.Error("bulk check-in failed",
				zap.String("event_id", eventID),
				zap.String("participant_id", o.ParticipantID),
				zap.Error(o.Err),
			)
			res.Error = "internal error"
		}
		results = append(results, res)
	}
	if len(events) > 0 {
		s.publish(ctx, events...)
		s.views.Invalidate(ctx, eventID)
	}
	return results, nil
}

// ListRegistrations returns an event's registrations, newest first. Waitlisted
// registrations are left out unless includeWaitlist is set.
func (s *RegistrationService) ListRegistrations(ctx context.Context, p *model.Principal, eventID string, includeWaitlist bool) ([]model.RegistrationView, error) {
	if err := s.authorize(ctx, p, policy.RegistrationRead, eventID); err != nil {
		return nil, err
	}
	var statuses []model.RegistrationStatus
	if !includeWaitlist {
		for _, st := range model.AllStatuses {
			if st != model.StatusWaitlisted {
				statuses = append(statuses, st)
			}
		}
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID, statuses)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// CheckInStats summarises attendance for an event.
func (s *RegistrationService) CheckInStats(ctx context.Context, p *model.Principal, eventID string) (*model.CheckInStats, error) {
	if err := s.authorize(ctx, p, policy.CheckInManage, eventID); err != nil {
		return nil, err
	}
	counts, err := s.registrations.StatusCounts(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	stats := &model.CheckInStats{
		RegisteredCount: counts[model.StatusRegistered],
		WaitlistedCount: counts[model.StatusWaitlisted],
		CheckedInCount:  counts[model.StatusCheckedIn],
		CancelledCount:  counts[model.StatusCancelled],
		NoShowCount:     counts[model.StatusNoShow],
	}
	for _, n := range counts {
		stats.TotalRegistrations += n
	}
	stats.CheckInRate = percent(stats.CheckedInCount, stats.TotalRegistrations)
	return stats, nil
}

func (s *RegistrationService) authorize(ctx context.Context, p *model.Principal, action policy.Action, eventID string) error {
	if p == nil {
		return model.ErrUnauthorized
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	return authorizeEvent(ctx, s.members, p, action, ev)
}

// publish emits events after the registration change has committed. A
// failure is logged and does not fail the request.
func (s *RegistrationService) publish(ctx context.Context, events ...publisher.Event) {
	if err := s.pub.Publish(ctx, events...); err != nil {
		s.log.Error("publish registration events",
			zap.Int("count", len(events)),
			zap.String("type", string(events[0].Type)),
			zap.Error(err),
		)
	}
}
