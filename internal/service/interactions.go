package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/policy"
)

const (
	interactionListLimit = 100
	defaultRejectReason  = "Content violation"
)

// InteractionService manages comments, likes and other attendee engagement.
type InteractionService struct {
	events       EventStore
	participants ParticipantStore
	interactions InteractionStore
	members      MemberStore
	log          *zap.Logger
	now          func() time.Time
}

// NewInteractionService constructs an InteractionService.
func NewInteractionService(events EventStore, participants ParticipantStore, interactions InteractionStore, members MemberStore, log *zap.Logger) *InteractionService {
	return &InteractionService{
		events:       events,
		participants: participants,
		interactions: interactions,
		members:      members,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create records an interaction on a public event. Anonymous callers must
// name the participant they act as; p may be nil.
func (s *InteractionService) Create(ctx context.Context, p *model.Principal, eventID string, req model.CreateInteractionRequest, meta model.RequestMeta) (*model.Interaction, error) {
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
	if req.ParticipantID == "" && p == nil {
		return nil, model.NewValidationError("participant_id", "is required when not signed in")
	}
	if req.ParticipantID != "" {
		if _, err := s.participants.GetByID(ctx, req.ParticipantID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, model.NewValidationError("participant_id", "does not match a participant")
			}
			return nil, fmt.Errorf("load participant: %w", err)
		}
	}

	metadata := make(map[string]any, len(req.Metadata)+3)
	maps.Copy(metadata, req.Metadata)
	metadata["ipAddress"] = meta.IPAddress
	metadata["userAgent"] = meta.UserAgent
	metadata["timestamp"] = s.now().Format(time.RFC3339)

	in := &model.Interaction{
		EventID:       eventID,
		ParticipantID: req.ParticipantID,
		Type:          req.Type,
		Content:       req.Content,
		Metadata:      metadata,
	}
	if p != nil {
		in.UserID = p.ID
	}
	if err := s.interactions.Create(ctx, in); err != nil {
		return nil, fmt.Errorf("create interaction: %w", err)
	}
	return in, nil
}

// List returns an event's interactions, newest first. Rejected interactions
// are only included for principals allowed to moderate the event.
func (s *InteractionService) List(ctx context.Context, p *model.Principal, eventID string, typ model.InteractionType, includeModerated bool) ([]model.Interaction, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if typ != "" && !validInteractionType(typ) {
		return nil, model.NewValidationError("type", "is not a known interaction type")
	}
	if includeModerated {
		scope, err := eventScope(ctx, s.members, p, ev)
		if err != nil {
			return nil, err
		}
		includeModerated = policy.Can(p, policy.InteractionModerate, scope)
	}

	out, err := s.interactions.List(ctx, model.InteractionFilter{
		EventID:          eventID,
		Type:             typ,
		IncludeModerated: includeModerated,
		Limit:            interactionListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	return out, nil
}

func validInteractionType(t model.InteractionType) bool {
	switch t {
	case model.InteractionComment, model.InteractionLike, model.InteractionShare,
		model.InteractionPhoto, model.InteractionSurveyResponse, model.InteractionFeedback:
		return true
	}
	return false
}

// Moderate approves or rejects one interaction.
func (s *InteractionService) Moderate(ctx context.Context, p *model.Principal, id string, req model.ModerateRequest) (*model.Interaction, error) {
	if p == nil {
		return nil, model.ErrUnauthorized
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.moderate(ctx, p, id, req.Action, req.Reason)
}

// BulkModerate applies the same decision to several interactions. Each id
// succeeds or fails on its own.
func (s *InteractionService) BulkModerate(ctx context.Context, p *model.Principal, req model.BulkModerateRequest) ([]model.BulkResult, error) {
	if p == nil {
		return nil, model.ErrUnauthorized
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	results := make([]model.BulkResult, 0, len(req.InteractionIDs))
	for _, id := range req.InteractionIDs {
		res := model.BulkResult{ID: id, Success: true}
		if _, err := s.moderate(ctx, p, id, req.Action, req.Reason); err != nil {
			res.Success = false
			res.Error = bulkError(s.log, id, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func bulkError(log *zap.Logger, id string, err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrForbidden):
		return err.Error()
	default:
		log.Error("bulk moderation failed", zap.String("interaction_id", id), zap.Error(err))
		return "internal error"
	}
}

func (s *InteractionService) moderate(ctx context.Context, p *model.Principal, id string, action model.ModerationAction, reason string) (*model.Interaction, error) {
	in, err := s.interactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ev, err := s.events.GetByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if err := authorizeEvent(ctx, s.members, p, policy.InteractionModerate, ev); err != nil {
		return nil, err
	}

	switch action {
	case model.ModerationApprove:
		in.IsModerated = false
		in.ModeratedBy = ""
		in.ModeratedAt = nil
		in.ModerationReason = ""
	case model.ModerationReject:
		now := s.now()
		in.IsModerated = true
		in.ModeratedBy = p.ID
		in.ModeratedAt = &now
		in.ModerationReason = reason
		if in.ModerationReason == "" {
			in.ModerationReason = defaultRejectReason
		}
	}
	if err := s.interactions.Update(ctx, in); err != nil {
		return nil, fmt.Errorf("update interaction: %w", err)
	}
	s.log.Info("interaction moderated",
		zap.String("interaction_id", in.ID),
		zap.String("action", string(action)),
		zap.String("moderator_id", p.ID),
	)
	return in, nil
}

// Delete removes an interaction. Authors may delete their own; otherwise the
// principal needs interaction:delete on the event, and STAFF may not delete
// comments.
func (s *InteractionService) Delete(ctx context.Context, p *model.Principal, id string) error {
	if p == nil {
		return model.ErrUnauthorized
	}
	in, err := s.interactions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if in.UserID == "" || in.UserID != p.ID {
		if p.Role == model.RoleStaff && in.Type == model.InteractionComment {
			return model.ErrForbidden
		}
		ev, err := s.events.GetByID(ctx, in.EventID)
		if err != nil {
			return err
		}
		if err := authorizeEvent(ctx, s.members, p, policy.InteractionDelete, ev); err != nil {
			return err
		}
	}
	if err := s.interactions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete interaction: %w", err)
	}
	return nil
}

// Stats summarises an event's interactions.
func (s *InteractionService) Stats(ctx context.Context, eventID string) (*model.InteractionStats, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	counts, err := s.interactions.TypeCounts(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}
	stats := &model.InteractionStats{TypeBreakdown: counts}
	for _, c := range counts {
		stats.TotalInteractions += c.Count
		stats.ModeratedInteractions += c.ModeratedCount
	}
	stats.ModerationRate = percent(stats.ModeratedInteractions, stats.TotalInteractions)
	return stats, nil
}
