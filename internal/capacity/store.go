// Package capacity owns the registration lifecycle of a participant against an
// event's capacity: admission, waitlisting, cancellation, check-in and
// waitlist promotion.
//
// Every operation runs inside Store.InEventTx, which serialises all work for
// one event. That is what keeps at most MaxAttendees registrations holding a
// seat and the waitlist positions of an event contiguous from 1.
package capacity

import (
	"context"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// Store runs capacity work against persistent registrations.
type Store interface {
	// InEventTx runs fn with the event locked against concurrent InEventTx
	// calls for the same event. Writes made through tx are applied only if
	// fn returns nil. It returns model.ErrNotFound if the event is missing.
	InEventTx(ctx context.Context, eventID string, fn func(ctx context.Context, tx Tx, event *model.Event) error) error
}

// Tx is the registration view available inside InEventTx.
type Tx interface {
	// Latest returns the most recent registration of participantID for
	// eventID, or model.ErrNotFound.
	Latest(ctx context.Context, eventID, participantID string) (*model.Registration, error)

	// Count returns how many registrations of eventID have one of statuses.
	Count(ctx context.Context, eventID string, statuses ...model.RegistrationStatus) (int, error)

	// Insert stores a new registration.
	Insert(ctx context.Context, reg *model.Registration) error

	// Save persists status, waitlist position and check-in time of reg.
	Save(ctx context.Context, reg *model.Registration) error

	// FirstWaitlisted returns the waitlisted registration of eventID with
	// the lowest position, or model.ErrNotFound when the waitlist is empty.
	FirstWaitlisted(ctx context.Context, eventID string) (*model.Registration, error)

	// ShiftWaitlist decrements the position of every waitlisted registration
	// of eventID whose position is greater than after.
	ShiftWaitlist(ctx context.Context, eventID string, after int) error
}
