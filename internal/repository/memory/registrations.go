package memory

import (
	"context"
	"sort"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/capacity"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// RegistrationRepository stores registrations. It is the capacity.Store of
// the memory driver: InEventTx holds a per-event mutex for the duration of
// fn and restores the event's registrations if fn fails.
type RegistrationRepository struct{ db *DB }

// NewRegistrationRepository constructs a RegistrationRepository over db.
func NewRegistrationRepository(db *DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// InEventTx implements capacity.Store.
func (r *RegistrationRepository) InEventTx(ctx context.Context, eventID string, fn func(ctx context.Context, tx capacity.Tx, event *model.Event) error) error {
	lock := r.db.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	r.db.mu.RLock()
	ev, ok := r.db.events[eventID]
	var event model.Event
	if ok {
		event = *ev
	}
	snapshot := cloneRows(r.db.registrations[eventID])
	r.db.mu.RUnlock()
	if !ok {
		return model.ErrNotFound
	}

	if err := fn(ctx, &memTx{db: r.db}, &event); err != nil {
		r.db.mu.Lock()
		if snapshot == nil {
			delete(r.db.registrations, eventID)
		} else {
			r.db.registrations[eventID] = snapshot
		}
		r.db.mu.Unlock()
		return err
	}
	return nil
}

func cloneRows(rows map[string]*registrationRow) map[string]*registrationRow {
	if rows == nil {
		return nil
	}
	out := make(map[string]*registrationRow, len(rows))
	for id, row := range rows {
		out[id] = &registrationRow{reg: row.reg.Clone(), seq: row.seq}
	}
	return out
}

// ListByEvent returns an event's registrations with one of statuses, newest
// first, joined with participant details. No statuses means all.
func (r *RegistrationRepository) ListByEvent(_ context.Context, eventID string, statuses []model.RegistrationStatus) ([]model.RegistrationView, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if _, ok := r.db.events[eventID]; !ok {
		return nil, model.ErrNotFound
	}

	rows := make([]*registrationRow, 0, len(r.db.registrations[eventID]))
	for _, row := range r.db.registrations[eventID] {
		if len(statuses) == 0 || hasStatus(statuses, row.reg.Status) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]model.RegistrationView, 0, len(rows))
	for _, row := range rows {
		v := model.RegistrationView{Registration: *row.reg.Clone()}
		if p, ok := r.db.participants[row.reg.ParticipantID]; ok {
			v.ParticipantName = p.Name
			v.ParticipantEmail = p.Email
			v.ParticipantPhone = p.Phone
		}
		out = append(out, v)
	}
	return out, nil
}

// StatusCounts returns how many registrations of eventID are in each status.
func (r *RegistrationRepository) StatusCounts(_ context.Context, eventID string) (map[model.RegistrationStatus]int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if _, ok := r.db.events[eventID]; !ok {
		return nil, model.ErrNotFound
	}
	counts := make(map[model.RegistrationStatus]int, len(model.AllStatuses))
	for _, row := range r.db.registrations[eventID] {
		counts[row.reg.Status]++
	}
	return counts, nil
}

func hasStatus(statuses []model.RegistrationStatus, s model.RegistrationStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

// memTx is the capacity.Tx of the memory driver. The caller holds the event
// lock; db.mu guards each individual access.
type memTx struct{ db *DB }

func (t *memTx) Latest(_ context.Context, eventID, participantID string) (*model.Registration, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()

	var best *registrationRow
	for _, row := range t.db.registrations[eventID] {
		if row.reg.ParticipantID != participantID {
			continue
		}
		if best == nil || newer(row, best) {
			best = row
		}
	}
	if best == nil {
		return nil, model.ErrNotFound
	}
	return best.reg.Clone(), nil
}

// newer prefers a current registration, then the most recently inserted one.
func newer(a, b *registrationRow) bool {
	if a.reg.Status.IsCurrent() != b.reg.Status.IsCurrent() {
		return a.reg.Status.IsCurrent()
	}
	return a.seq > b.seq
}

func (t *memTx) Count(_ context.Context, eventID string, statuses ...model.RegistrationStatus) (int, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	n := 0
	for _, row := range t.db.registrations[eventID] {
		if hasStatus(statuses, row.reg.Status) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) Insert(_ context.Context, reg *model.Registration) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	rows := t.db.registrations[reg.EventID]
	if rows == nil {
		rows = make(map[string]*registrationRow)
		t.db.registrations[reg.EventID] = rows
	}
	if reg.Status.IsCurrent() {
		for _, row := range rows {
			if row.reg.ParticipantID == reg.ParticipantID && row.reg.Status.IsCurrent() {
				return model.ErrDuplicateRegistration
			}
		}
	}
	t.db.seq++
	rows[reg.ID] = &registrationRow{reg: reg.Clone(), seq: t.db.seq}
	return nil
}

func (t *memTx) Save(_ context.Context, reg *model.Registration) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	row, ok := t.db.registrations[reg.EventID][reg.ID]
	if !ok {
		return model.ErrNotFound
	}
	c := reg.Clone()
	c.UpdatedAt = now()
	row.reg = c
	return nil
}

func (t *memTx) FirstWaitlisted(_ context.Context, eventID string) (*model.Registration, error) {
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	var head *model.Registration
	for _, row := range t.db.registrations[eventID] {
		reg := row.reg
		if reg.Status != model.StatusWaitlisted || reg.WaitlistPosition == nil {
			continue
		}
		if head == nil || *reg.WaitlistPosition < *head.WaitlistPosition {
			head = reg
		}
	}
	if head == nil {
		return nil, model.ErrNotFound
	}
	return head.Clone(), nil
}

func (t *memTx) ShiftWaitlist(_ context.Context, eventID string, after int) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for _, row := range t.db.registrations[eventID] {
		reg := row.reg
		if reg.Status == model.StatusWaitlisted && reg.WaitlistPosition != nil && *reg.WaitlistPosition > after {
			p := *reg.WaitlistPosition - 1
			reg.WaitlistPosition = &p
		}
	}
	return nil
}
