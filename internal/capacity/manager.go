package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

const tracerName = "github.com/Shivanand-hulikatti/event-rsvp/internal/capacity"

// Manager decides RSVP outcomes and keeps each event's waitlist consistent
// under check-ins, cancellations and promotions. It is safe for concurrent
// use; serialisation per event is delegated to the Store.
type Manager struct {
	store  Store
	now    func() time.Time
	newID  func() string
	tracer trace.Tracer
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for deadlines and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides how registration IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// NewManager constructs a Manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Transition is the result of a cancellation: the cancelled registration and,
// when a seat was handed on, the registration promoted off the waitlist.
type Transition struct {
	Registration *model.Registration
	Promoted     *model.Registration
}

// BulkOutcome is the per-participant result of BulkCheckIn.
type BulkOutcome struct {
	ParticipantID string
	Registration  *model.Registration
	Err           error
}

// Submit admits participantID to eventID. The new registration is REGISTERED
// while seats remain, otherwise WAITLISTED at the back of the queue when the
// event allows a waitlist. Exactly one registration is created on success.
func (m *Manager) Submit(ctx context.Context, eventID, participantID string, meta model.RequestMeta) (_ *model.Registration, err error) {
	ctx, span := m.start(ctx, "capacity.Submit", eventID, participantID)
	defer func() { endSpan(span, err) }()

	var created *model.Registration
	err = m.store.InEventTx(ctx, eventID, func(ctx context.Context, tx Tx, event *model.Event) error {
		now := m.now()
		if event.DeadlinePassed(now) {
			return model.ErrDeadlineExpired
		}

		existing, err := tx.Latest(ctx, eventID, participantID)
		switch {
		case err == nil && existing.Status.IsCurrent():
			return model.ErrDuplicateRegistration
		case err != nil && !errors.Is(err, model.ErrNotFound):
			return fmt.Errorf("find existing registration: %w", err)
		}

		active, err := tx.Count(ctx, eventID, model.StatusRegistered, model.StatusCheckedIn)
		if err != nil {
			return fmt.Errorf("count active registrations: %w", err)
		}

		reg := &model.Registration{
			ID:            m.newID(),
			EventID:       eventID,
			ParticipantID: participantID,
			RSVPAt:        now,
			Source:        meta.Source,
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if reg.Source == "" {
			reg.Source = "web"
		}

		switch {
		case event.HasSeatFor(active):
			reg.Status = model.StatusRegistered
		case event.AllowWaitlist:
			position, err := newWaitlist(tx, eventID).Append(ctx)
			if err != nil {
				return err
			}
			reg.Status = model.StatusWaitlisted
			reg.WaitlistPosition = &position
		default:
			return model.ErrEventFull
		}

		if err := tx.Insert(ctx, reg); err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		created = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("registration.status", string(created.Status)))
	return created, nil
}

// CheckIn marks a REGISTERED or WAITLISTED registration as CHECKED_IN. A
// waitlisted registration that is force-checked-in leaves the queue and the
// positions behind it move up; nobody is promoted.
func (m *Manager) CheckIn(ctx context.Context, eventID, participantID string) (_ *model.Registration, err error) {
	ctx, span := m.start(ctx, "capacity.CheckIn", eventID, participantID)
	defer func() { endSpan(span, err) }()

	var updated *model.Registration
	err = m.store.InEventTx(ctx, eventID, func(ctx context.Context, tx Tx, _ *model.Event) error {
		reg, err := tx.Latest(ctx, eventID, participantID)
		if err != nil {
			return err
		}
		if reg.Status != model.StatusRegistered && reg.Status != model.StatusWaitlisted {
			return model.ErrRegistrationNotEligible
		}

		vacated := reg.WaitlistPosition
		now := m.now()
		reg.Status = model.StatusCheckedIn
		reg.WaitlistPosition = nil
		reg.CheckInAt = &now
		reg.UpdatedAt = now
		if err := tx.Save(ctx, reg); err != nil {
			return fmt.Errorf("save check-in: %w", err)
		}
		if vacated != nil {
			if err := newWaitlist(tx, eventID).Remove(ctx, *vacated); err != nil {
				return err
			}
		}
		updated = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel moves a REGISTERED or WAITLISTED registration to CANCELLED. Cancelling
// a seat holder promotes the head of the waitlist when a seat is free;
// cancelling a waitlisted registration closes its gap in the queue.
func (m *Manager) Cancel(ctx context.Context, eventID, participantID string) (_ *Transition, err error) {
	ctx, span := m.start(ctx, "capacity.Cancel", eventID, participantID)
	defer func() { endSpan(span, err) }()

	var result *Transition
	err = m.store.InEventTx(ctx, eventID, func(ctx context.Context, tx Tx, event *model.Event) error {
		reg, err := tx.Latest(ctx, eventID, participantID)
		if err != nil {
			return err
		}
		if reg.Status != model.StatusRegistered && reg.Status != model.StatusWaitlisted {
			return model.ErrRegistrationNotEligible
		}

		previous := reg.Status
		vacated := reg.WaitlistPosition
		reg.Status = model.StatusCancelled
		reg.WaitlistPosition = nil
		reg.UpdatedAt = m.now()
		if err := tx.Save(ctx, reg); err != nil {
			return fmt.Errorf("save cancellation: %w", err)
		}

		wl := newWaitlist(tx, eventID)
		t := &Transition{Registration: reg}
		switch {
		case previous == model.StatusWaitlisted && vacated != nil:
			if err := wl.Remove(ctx, *vacated); err != nil {
				return err
			}
		case previous == model.StatusRegistered:
			promoted, err := m.promote(ctx, tx, wl, event)
			if err != nil {
				return err
			}
			t.Promoted = promoted
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Promoted != nil {
		span.SetAttributes(attribute.String("registration.promoted", result.Promoted.ID))
	}
	return result, nil
}

// promote hands a free seat to the head of the waitlist.
func (m *Manager) promote(ctx context.Context, tx Tx, wl *Waitlist, event *model.Event) (*model.Registration, error) {
	active, err := tx.Count(ctx, event.ID, model.StatusRegistered, model.StatusCheckedIn)
	if err != nil {
		return nil, fmt.Errorf("count active registrations: %w", err)
	}
	if !event.HasSeatFor(active) {
		return nil, nil
	}
	return wl.PopFront(ctx)
}

// NoShow moves a CHECKED_IN registration to NO_SHOW. The seat is not
// released and the waitlist is untouched.
func (m *Manager) NoShow(ctx context.Context, eventID, participantID string) (_ *model.Registration, err error) {
	ctx, span := m.start(ctx, "capacity.NoShow", eventID, participantID)
	defer func() { endSpan(span, err) }()

	var updated *model.Registration
	err = m.store.InEventTx(ctx, eventID, func(ctx context.Context, tx Tx, _ *model.Event) error {
		reg, err := tx.Latest(ctx, eventID, participantID)
		if err != nil {
			return err
		}
		if reg.Status != model.StatusCheckedIn {
			return model.ErrRegistrationNotEligible
		}
		reg.Status = model.StatusNoShow
		reg.UpdatedAt = m.now()
		if err := tx.Save(ctx, reg); err != nil {
			return fmt.Errorf("save no-show: %w", err)
		}
		updated = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// BulkCheckIn checks in each participant independently. A failure for one id
// is recorded in its outcome and does not stop the batch.
func (m *Manager) BulkCheckIn(ctx context.Context, eventID string, participantIDs []string) []BulkOutcome {
	out := make([]BulkOutcome, 0, len(participantIDs))
	for _, id := range participantIDs {
		reg, err := m.CheckIn(ctx, eventID, id)
		out = append(out, BulkOutcome{ParticipantID: id, Registration: reg, Err: err})
	}
	return out
}

func (m *Manager) start(ctx context.Context, name, eventID, participantID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("participant.id", participantID),
	))
}

// IsStateError reports whether err is an expected business outcome rather
// than an infrastructure failure.
func IsStateError(err error) bool {
	return errors.Is(err, model.ErrEventFull) ||
		errors.Is(err, model.ErrDeadlineExpired) ||
		errors.Is(err, model.ErrDuplicateRegistration) ||
		errors.Is(err, model.ErrRegistrationNotEligible) ||
		errors.Is(err, model.ErrNotFound)
}

func endSpan(span trace.Span, err error) {
	switch {
	case err == nil:
	case IsStateError(err):
		span.SetAttributes(attribute.String("capacity.rejected", err.Error()))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
