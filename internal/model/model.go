// Package model defines the core domain types for the event RSVP service.
package model

import "time"

// CustomField describes an extra question an organizer attaches to an event's
// RSVP form.
type CustomField struct {
	Name         string   `json:"name" validate:"required,max=50"`
	Type         string   `json:"type" validate:"required,oneof=text number select checkbox"`
	Required     bool     `json:"required"`
	Options      []string `json:"options,omitempty"`
	DefaultValue any      `json:"default_value,omitempty"`
}

// Event represents an event created by an organizer. Only MaxAttendees,
// AllowWaitlist and RegistrationDeadline affect registration capacity.
type Event struct {
	ID                   string        `json:"id"`
	OwnerID              string        `json:"owner_id"`
	Title                string        `json:"title"`
	Description          string        `json:"description,omitempty"`
	Location             string        `json:"location,omitempty"`
	Tags                 []string      `json:"tags,omitempty"`
	ImageURL             string        `json:"image_url,omitempty"`
	StartAt              time.Time     `json:"start_at"`
	EndAt                *time.Time    `json:"end_at,omitempty"`
	IsPublic             bool          `json:"is_public"`
	MaxAttendees         *int          `json:"max_attendees,omitempty"`
	AllowWaitlist        bool          `json:"allow_waitlist"`
	RegistrationDeadline *time.Time    `json:"registration_deadline,omitempty"`
	CustomFields         []CustomField `json:"custom_fields,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// HasSeatFor reports whether another seat can be given out when active seats
// are already taken. An event without MaxAttendees is unlimited.
func (e *Event) HasSeatFor(active int) bool {
	return e.MaxAttendees == nil || active < *e.MaxAttendees
}

// DeadlinePassed reports whether registration has closed at now.
func (e *Event) DeadlinePassed(now time.Time) bool {
	return e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline)
}

// CustomFieldResponse is a participant's answer to one CustomField.
type CustomFieldResponse struct {
	FieldName string `json:"field_name" validate:"required"`
	Value     any    `json:"value"`
}

// Participant is a member of the public who RSVPs to events. Participants are
// identified by their lower-cased email.
type Participant struct {
	ID                   string                `json:"id"`
	Name                 string                `json:"name"`
	Email                string                `json:"email"`
	Phone                string                `json:"phone,omitempty"`
	Notes                string                `json:"notes,omitempty"`
	CustomFieldResponses []CustomFieldResponse `json:"custom_field_responses,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// RegistrationStatus is the lifecycle state of a Registration.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "REGISTERED"
	StatusWaitlisted RegistrationStatus = "WAITLISTED"
	StatusCheckedIn  RegistrationStatus = "CHECKED_IN"
	StatusCancelled  RegistrationStatus = "CANCELLED"
	StatusNoShow     RegistrationStatus = "NO_SHOW"
)

// AllStatuses lists every status in display order.
var AllStatuses = []RegistrationStatus{
	StatusRegistered, StatusWaitlisted, StatusCheckedIn, StatusCancelled, StatusNoShow,
}

// HoldsSeat reports whether the status counts against event capacity.
func (s RegistrationStatus) HoldsSeat() bool {
	return s == StatusRegistered || s == StatusCheckedIn
}

// IsCurrent reports whether the status blocks another registration by the
// same participant for the same event.
func (s RegistrationStatus) IsCurrent() bool {
	return s == StatusRegistered || s == StatusWaitlisted || s == StatusCheckedIn
}

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Registration ties a participant to an event. WaitlistPosition is set iff
// Status is StatusWaitlisted.
type Registration struct {
	ID               string             `json:"id"`
	EventID          string             `json:"event_id"`
	ParticipantID    string             `json:"participant_id"`
	Status           RegistrationStatus `json:"status"`
	WaitlistPosition *int               `json:"waitlist_position,omitempty"`
	RSVPAt           time.Time          `json:"rsvp_at"`
	CheckInAt        *time.Time         `json:"check_in_at,omitempty"`
	Source           string             `json:"source,omitempty"`
	IPAddress        string             `json:"-"`
	UserAgent        string             `json:"-"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of r.
func (r *Registration) Clone() *Registration {
	c := *r
	if r.WaitlistPosition != nil {
		p := *r.WaitlistPosition
		c.WaitlistPosition = &p
	}
	if r.CheckInAt != nil {
		t := *r.CheckInAt
		c.CheckInAt = &t
	}
	return &c
}

// RegistrationView is a registration joined with its participant's contact
// details, as shown to event staff.
type RegistrationView struct {
	Registration
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email"`
	ParticipantPhone string `json:"participant_phone,omitempty"`
}

// MemberRole is the role a user holds on a single event's staff.
type MemberRole string

const (
	MemberStaff     MemberRole = "STAFF"
	MemberModerator MemberRole = "MODERATOR"
	MemberViewer    MemberRole = "VIEWER"
)

// EventMember assigns a user to an event's staff.
type EventMember struct {
	EventID string     `json:"event_id"`
	UserID  string     `json:"user_id"`
	Role    MemberRole `json:"role"`
	AddedBy string     `json:"added_by"`
	AddedAt time.Time  `json:"added_at"`
}
