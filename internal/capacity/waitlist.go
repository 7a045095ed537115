package capacity

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// Waitlist is the ordered queue of one event's waitlisted registrations.
// Positions stay dense: 1..N with no gaps or duplicates. It is only valid
// inside the InEventTx call that created it.
type Waitlist struct {
	tx      Tx
	eventID string
}

func newWaitlist(tx Tx, eventID string) *Waitlist {
	return &Waitlist{tx: tx, eventID: eventID}
}

// Len returns the number of waitlisted registrations.
func (w *Waitlist) Len(ctx context.Context) (int, error) {
	n, err := w.tx.Count(ctx, w.eventID, model.StatusWaitlisted)
	if err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return n, nil
}

// Append returns the position for a registration joining the back of the
// queue.
func (w *Waitlist) Append(ctx context.Context) (int, error) {
	n, err := w.Len(ctx)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// Remove closes the gap left by the registration that held position.
func (w *Waitlist) Remove(ctx context.Context, position int) error {
	if err := w.tx.ShiftWaitlist(ctx, w.eventID, position); err != nil {
		return fmt.Errorf("compact waitlist after %d: %w", position, err)
	}
	return nil
}

// PopFront takes the lowest-positioned registration off the queue, moves it to
// REGISTERED and compacts the rest. It returns nil when the queue is empty.
func (w *Waitlist) PopFront(ctx context.Context) (*model.Registration, error) {
	head, err := w.tx.FirstWaitlisted(ctx, w.eventID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find waitlist head: %w", err)
	}

	position := 1
	if head.WaitlistPosition != nil {
		position = *head.WaitlistPosition
	}
	head.Status = model.StatusRegistered
	head.WaitlistPosition = nil
	if err := w.tx.Save(ctx, head); err != nil {
		return nil, fmt.Errorf("promote %s: %w", head.ID, err)
	}
	if err := w.Remove(ctx, position); err != nil {
		return nil, err
	}
	return head, nil
}
