// Package service implements business logic, validation, and orchestration
// between HTTP handlers, the capacity manager and the repository layer.
package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/policy"
)

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Search(ctx context.Context, f model.EventFilter) ([]model.Event, int, error)
	Availability(ctx context.Context, id string) (model.Availability, error)
}

// ParticipantStore persists participants.
type ParticipantStore interface {
	Upsert(ctx context.Context, p *model.Participant) error
	GetByID(ctx context.Context, id string) (*model.Participant, error)
}

// RegistrationReader reads registrations outside the capacity manager's
// write path.
type RegistrationReader interface {
	ListByEvent(ctx context.Context, eventID string, statuses []model.RegistrationStatus) ([]model.RegistrationView, error)
	StatusCounts(ctx context.Context, eventID string) (map[model.RegistrationStatus]int, error)
}

// MemberStore persists event staff assignments.
type MemberStore interface {
	Add(ctx context.Context, m *model.EventMember) error
	List(ctx context.Context, eventID string) ([]model.EventMember, error)
	IsMember(ctx context.Context, eventID, userID string) (bool, error)
}

// InteractionStore persists attendee interactions.
type InteractionStore interface {
	Create(ctx context.Context, in *model.Interaction) error
	GetByID(ctx context.Context, id string) (*model.Interaction, error)
	List(ctx context.Context, f model.InteractionFilter) ([]model.Interaction, error)
	Update(ctx context.Context, in *model.Interaction) error
	Delete(ctx context.Context, id string) error
	TypeCounts(ctx context.Context, eventID string) ([]model.InteractionTypeCount, error)
}

// StatsStore computes platform-wide totals.
type StatsStore interface {
	SystemStats(ctx context.Context) (*model.SystemStats, error)
}

// eventScope resolves the policy scope of an action on ev for p. Membership
// is only looked up for STAFF, the one role it matters for.
func eventScope(ctx context.Context, members MemberStore, p *model.Principal, ev *model.Event) (policy.Scope, error) {
	isMember := false
	if p != nil && p.Role == model.RoleStaff {
		ok, err := members.IsMember(ctx, ev.ID, p.ID)
		if err != nil {
			return policy.Scope{}, fmt.Errorf("check event membership: %w", err)
		}
		isMember = ok
	}
	return policy.ForEvent(ev, isMember), nil
}

// authorizeEvent fails unless p may perform action on ev.
func authorizeEvent(ctx context.Context, members MemberStore, p *model.Principal, action policy.Action, ev *model.Event) error {
	if p == nil {
		return model.ErrUnauthorized
	}
	scope, err := eventScope(ctx, members, p, ev)
	if err != nil {
		return err
	}
	return policy.Require(p, action, scope)
}

// percent returns part/total as a percentage, 0 when total is 0.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
