package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/policy"
)

// AdminService serves platform-wide analytics to administrators.
type AdminService struct {
	stats         StatsStore
	events        EventStore
	registrations RegistrationReader
	interactions  InteractionStore
}

// NewAdminService constructs an AdminService.
func NewAdminService(stats StatsStore, events EventStore, registrations RegistrationReader, interactions InteractionStore) *AdminService {
	return &AdminService{stats: stats, events: events, registrations: registrations, interactions: interactions}
}

// SystemStats returns totals across every event.
func (s *AdminService) SystemStats(ctx context.Context, p *model.Principal) (*model.SystemStats, error) {
	if err := policy.Require(p, policy.SystemAdmin, policy.Scope{}); err != nil {
		return nil, err
	}
	stats, err := s.stats.SystemStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("system stats: %w", err)
	}
	return stats, nil
}

// EventAnalytics returns the registration and interaction breakdown of one
// event.
func (s *AdminService) EventAnalytics(ctx context.Context, p *model.Principal, eventID string) (*model.EventAnalytics, error) {
	if err := policy.Require(p, policy.SystemAdmin, policy.Scope{}); err != nil {
		return nil, err
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	counts, err := s.registrations.StatusCounts(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	interactions, err := s.interactions.TypeCounts(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}

	total := 0
	byState := make(map[model.RegistrationStatus]int, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		byState[st] = counts[st]
		total += counts[st]
	}
	return &model.EventAnalytics{
		EventID:              eventID,
		RegistrationsByState: byState,
		Interactions:         interactions,
		CheckInRate:          percent(counts[model.StatusCheckedIn], total),
		WaitlistLength:       counts[model.StatusWaitlisted],
	}, nil
}
