package model

import "time"

// InteractionType classifies an attendee interaction.
type InteractionType string

const (
	InteractionComment        InteractionType = "COMMENT"
	InteractionLike           InteractionType = "LIKE"
	InteractionShare          InteractionType = "SHARE"
	InteractionPhoto          InteractionType = "PHOTO"
	InteractionSurveyResponse InteractionType = "SURVEY_RESPONSE"
	InteractionFeedback       InteractionType = "FEEDBACK"
)

// Interaction is a comment, like or other engagement left on an event. A
// rejected interaction keeps IsModerated set and is hidden from public lists.
type Interaction struct {
	ID               string          `json:"id"`
	EventID          string          `json:"event_id"`
	ParticipantID    string          `json:"participant_id,omitempty"`
	UserID           string          `json:"user_id,omitempty"`
	Type             InteractionType `json:"type"`
	Content          string          `json:"content,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
	IsModerated      bool            `json:"is_moderated"`
	ModeratedBy      string          `json:"moderated_by,omitempty"`
	ModeratedAt      *time.Time      `json:"moderated_at,omitempty"`
	ModerationReason string          `json:"moderation_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// InteractionFilter selects interactions for listing.
type InteractionFilter struct {
	EventID          string
	Type             InteractionType
	IncludeModerated bool
	Limit            int
}

// InteractionTypeCount is one row of an interaction breakdown.
type InteractionTypeCount struct {
	Type           InteractionType `json:"type"`
	Count          int             `json:"count"`
	ModeratedCount int             `json:"moderated_count"`
}
