package model

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a requested event, registration,
	// participant or interaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEventFull is returned when an event has no seat left and does not
	// allow a waitlist.
	ErrEventFull = errors.New("event is full")

	// ErrDeadlineExpired is returned for RSVPs after the registration deadline.
	ErrDeadlineExpired = errors.New("registration deadline has passed")

	// ErrDuplicateRegistration is returned when the participant already holds
	// a registered, waitlisted or checked-in registration for the event.
	ErrDuplicateRegistration = errors.New("participant is already registered for this event")

	// ErrRegistrationNotEligible is returned when a registration's status does
	// not permit the requested transition.
	ErrRegistrationNotEligible = errors.New("registration is not eligible for this action")

	// ErrForbidden is returned when the principal lacks the required capability.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized is returned when an operation needs a principal and none
	// was supplied.
	ErrUnauthorized = errors.New("authentication required")

	// ErrEventNotPublic is returned for public operations on a private event.
	ErrEventNotPublic = errors.New("event is not public")
)

// ValidationError carries field-level messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records msg for field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
