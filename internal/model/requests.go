package model

import "time"

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title                string        `json:"title" validate:"required,max=200"`
	Description          string        `json:"description" validate:"max=2000"`
	Location             string        `json:"location" validate:"max=200"`
	Tags                 []string      `json:"tags" validate:"dive,max=30"`
	ImageURL             string        `json:"image_url" validate:"omitempty,url"`
	StartAt              time.Time     `json:"start_at" validate:"required"`
	EndAt                *time.Time    `json:"end_at"`
	IsPublic             *bool         `json:"is_public"`
	MaxAttendees         *int          `json:"max_attendees" validate:"omitempty,min=1"`
	AllowWaitlist        bool          `json:"allow_waitlist"`
	RegistrationDeadline *time.Time    `json:"registration_deadline"`
	CustomFields         []CustomField `json:"custom_fields" validate:"dive"`
}

// EventFilter narrows a public event search.
type EventFilter struct {
	Query     string
	Tags      []string
	Location  string
	StartFrom *time.Time
	StartTo   *time.Time
	Limit     int
	Offset    int
}

// EventPage is one page of search results.
type EventPage struct {
	Events     []Event `json:"events"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	HasMore    bool    `json:"has_more"`
}

// Availability summarises how many seats of an event are taken.
type Availability struct {
	Registered int `json:"registered"`
	CheckedIn  int `json:"checked_in"`
	Waitlisted int `json:"waitlisted"`
}

// PublicEvent is the public view of an event including live availability.
type PublicEvent struct {
	Event
	CurrentRegistrations int  `json:"current_registrations"`
	WaitlistedCount      int  `json:"waitlisted_count"`
	AvailableSpots       *int `json:"available_spots"`
	IsFull               bool `json:"is_full"`
	IsRegistrationOpen   bool `json:"is_registration_open"`
}

// RSVPRequest is the public registration form.
type RSVPRequest struct {
	Name                 string                `json:"name" validate:"required,max=100"`
	Email                string                `json:"email" validate:"required,email"`
	Phone                string                `json:"phone" validate:"max=20"`
	Notes                string                `json:"notes" validate:"max=500"`
	CustomFieldResponses []CustomFieldResponse `json:"custom_field_responses" validate:"dive"`
}

// RequestMeta records where a request came from.
type RequestMeta struct {
	Source    string
	IPAddress string
	UserAgent string
}

// RSVPResult is the caller-facing outcome of a successful RSVP.
type RSVPResult struct {
	Status           RegistrationStatus `json:"status"`
	WaitlistPosition *int               `json:"waitlist_position,omitempty"`
	RegistrationID   string             `json:"registration_id"`
	ParticipantID    string             `json:"participant_id"`
}

// CancelRSVPRequest lets a participant withdraw their own RSVP.
type CancelRSVPRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
}

// CancelResult is the outcome of a cancellation. Promoted is the waitlisted
// registration that took over the freed seat, if any.
type CancelResult struct {
	Registration *Registration `json:"registration"`
	Promoted     *Registration `json:"promoted,omitempty"`
}

// CheckInRequest identifies the participant to check in or out.
type CheckInRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	Notes         string `json:"notes" validate:"max=200"`
}

// BulkCheckInRequest checks in several participants at once.
type BulkCheckInRequest struct {
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1,max=500,dive,required"`
}

// BulkResult is the per-item outcome of a bulk operation.
type BulkResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CheckInStats summarises attendance for one event.
type CheckInStats struct {
	TotalRegistrations int     `json:"total_registrations"`
	RegisteredCount    int     `json:"registered_count"`
	WaitlistedCount    int     `json:"waitlisted_count"`
	CheckedInCount     int     `json:"checked_in_count"`
	CancelledCount     int     `json:"cancelled_count"`
	NoShowCount        int     `json:"no_show_count"`
	CheckInRate        float64 `json:"check_in_rate"`
}

// AddMemberRequest assigns a user to an event's staff.
type AddMemberRequest struct {
	UserID string     `json:"user_id" validate:"required"`
	Role   MemberRole `json:"role" validate:"omitempty,oneof=STAFF MODERATOR VIEWER"`
}

// CreateInteractionRequest is the payload for a new interaction.
type CreateInteractionRequest struct {
	ParticipantID string          `json:"participant_id"`
	Type          InteractionType `json:"type" validate:"required,oneof=COMMENT LIKE SHARE PHOTO SURVEY_RESPONSE FEEDBACK"`
	Content       string          `json:"content" validate:"max=1000"`
	Metadata      map[string]any  `json:"metadata"`
}

// ModerationAction is either approve or reject.
type ModerationAction string

const (
	ModerationApprove ModerationAction = "approve"
	ModerationReject  ModerationAction = "reject"
)

// ModerateRequest approves or rejects one interaction.
type ModerateRequest struct {
	Action ModerationAction `json:"action" validate:"required,oneof=approve reject"`
	Reason string           `json:"reason" validate:"max=500"`
}

// BulkModerateRequest approves or rejects several interactions.
type BulkModerateRequest struct {
	InteractionIDs []string         `json:"interaction_ids" validate:"required,min=1,max=500,dive,required"`
	Action         ModerationAction `json:"action" validate:"required,oneof=approve reject"`
	Reason         string           `json:"reason" validate:"max=500"`
}

// InteractionStats summarises interactions on one event.
type InteractionStats struct {
	TotalInteractions     int                    `json:"total_interactions"`
	ModeratedInteractions int                    `json:"moderated_interactions"`
	TypeBreakdown         []InteractionTypeCount `json:"type_breakdown"`
	ModerationRate        float64                `json:"moderation_rate"`
}

// SystemStats are platform-wide totals for administrators.
type SystemStats struct {
	TotalEvents          int                        `json:"total_events"`
	PublicEvents         int                        `json:"public_events"`
	PrivateEvents        int                        `json:"private_events"`
	TotalParticipants    int                        `json:"total_participants"`
	TotalRegistrations   int                        `json:"total_registrations"`
	TotalInteractions    int                        `json:"total_interactions"`
	RegistrationsByState map[RegistrationStatus]int `json:"registrations_by_status"`
}

// EventAnalytics is the administrator's view of one event.
type EventAnalytics struct {
	EventID              string                     `json:"event_id"`
	RegistrationsByState map[RegistrationStatus]int `json:"registrations_by_status"`
	Interactions         []InteractionTypeCount     `json:"interactions"`
	CheckInRate          float64                    `json:"check_in_rate"`
	WaitlistLength       int                        `json:"waitlist_length"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
