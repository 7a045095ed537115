// Package memory implements every repository of the service in process
// memory. It backs STORAGE_DRIVER=memory for local development and the unit
// tests of the layers above storage.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/capacity"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// DB is the shared in-memory state behind the repositories.
type DB struct {
	mu            sync.RWMutex
	events        map[string]*model.Event
	participants  map[string]*model.Participant
	byEmail       map[string]string
	registrations map[string]map[string]*registrationRow // eventID -> registration ID
	members       map[string]map[string]model.EventMember
	interactions  map[string]*model.Interaction
	seq           int64

	locks sync.Map // eventID -> *sync.Mutex
}

type registrationRow struct {
	reg *model.Registration
	seq int64
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		events:        make(map[string]*model.Event),
		participants:  make(map[string]*model.Participant),
		byEmail:       make(map[string]string),
		registrations: make(map[string]map[string]*registrationRow),
		members:       make(map[string]map[string]model.EventMember),
		interactions:  make(map[string]*model.Interaction),
	}
}

func (db *DB) eventLock(eventID string) *sync.Mutex {
	l, _ := db.locks.LoadOrStore(eventID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func now() time.Time { return time.Now().UTC() }

// ─── Events ───────────────────────────────────────────────────────────────────

// EventRepository stores events.
type EventRepository struct{ db *DB }

// NewEventRepository constructs an EventRepository over db.
func NewEventRepository(db *DB) *EventRepository { return &EventRepository{db: db} }

// Create stores ev, assigning an ID and timestamps when missing.
func (r *EventRepository) Create(_ context.Context, ev *model.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now()
	}
	ev.UpdatedAt = ev.CreatedAt

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *ev
	r.db.events[ev.ID] = &c
	return nil
}

// GetByID returns a single event or model.ErrNotFound.
func (r *EventRepository) GetByID(_ context.Context, id string) (*model.Event, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ev, ok := r.db.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	c := *ev
	return &c, nil
}

// Search returns public events matching f ordered by start time.
func (r *EventRepository) Search(_ context.Context, f model.EventFilter) ([]model.Event, int, error) {
	r.db.mu.RLock()
	var matched []model.Event
	for _, ev := range r.db.events {
		if ev.IsPublic && matchesFilter(ev, f) {
			matched = append(matched, *ev)
		}
	}
	r.db.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartAt.Equal(matched[j].StartAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].StartAt.Before(matched[j].StartAt)
	})

	total := len(matched)
	if f.Offset >= total {
		return []model.Event{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func matchesFilter(ev *model.Event, f model.EventFilter) bool {
	if q := strings.ToLower(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(ev.Title), q) &&
			!strings.Contains(strings.ToLower(ev.Description), q) &&
			!strings.Contains(strings.ToLower(ev.Location), q) {
			return false
		}
	}
	if len(f.Tags) > 0 && !anyTag(ev.Tags, f.Tags) {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(ev.Location), strings.ToLower(f.Location)) {
		return false
	}
	if f.StartFrom != nil && ev.StartAt.Before(*f.StartFrom) {
		return false
	}
	if f.StartTo != nil && ev.StartAt.After(*f.StartTo) {
		return false
	}
	return true
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// Availability counts the seat-relevant registrations of an event.
func (r *EventRepository) Availability(_ context.Context, id string) (model.Availability, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if _, ok := r.db.events[id]; !ok {
		return model.Availability{}, model.ErrNotFound
	}
	var a model.Availability
	for _, row := range r.db.registrations[id] {
		switch row.reg.Status {
		case model.StatusRegistered:
			a.Registered++
		case model.StatusCheckedIn:
			a.CheckedIn++
		case model.StatusWaitlisted:
			a.Waitlisted++
		}
	}
	return a, nil
}

// ─── Participants ─────────────────────────────────────────────────────────────

// ParticipantRepository stores participants keyed by email.
type ParticipantRepository struct{ db *DB }

// NewParticipantRepository constructs a ParticipantRepository over db.
func NewParticipantRepository(db *DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Upsert inserts p or refreshes the participant with the same email. p.ID is
// set to the stored participant's ID.
func (r *ParticipantRepository) Upsert(_ context.Context, p *model.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	ts := now()
	email := strings.ToLower(p.Email)
	p.Email = email
	if id, ok := r.db.byEmail[email]; ok {
		existing := r.db.participants[id]
		p.ID = id
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = ts
		c := *p
		r.db.participants[id] = &c
		return nil
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt = ts, ts
	c := *p
	r.db.participants[p.ID] = &c
	r.db.byEmail[email] = p.ID
	return nil
}

// GetByID returns a participant or model.ErrNotFound.
func (r *ParticipantRepository) GetByID(_ context.Context, id string) (*model.Participant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.participants[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	c := *p
	return &c, nil
}

// ─── Members ──────────────────────────────────────────────────────────────────

// MemberRepository stores event staff assignments.
type MemberRepository struct{ db *DB }

// NewMemberRepository constructs a MemberRepository over db.
func NewMemberRepository(db *DB) *MemberRepository { return &MemberRepository{db: db} }

// Add assigns m.UserID to m.EventID, replacing an existing assignment.
func (r *MemberRepository) Add(_ context.Context, m *model.EventMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.events[m.EventID]; !ok {
		return model.ErrNotFound
	}
	if m.AddedAt.IsZero() {
		m.AddedAt = now()
	}
	if r.db.members[m.EventID] == nil {
		r.db.members[m.EventID] = make(map[string]model.EventMember)
	}
	r.db.members[m.EventID][m.UserID] = *m
	return nil
}

// List returns an event's members ordered by when they were added.
func (r *MemberRepository) List(_ context.Context, eventID string) ([]model.EventMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]model.EventMember, 0, len(r.db.members[eventID]))
	for _, m := range r.db.members[eventID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

// IsMember reports whether userID is on eventID's staff.
func (r *MemberRepository) IsMember(_ context.Context, eventID, userID string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	_, ok := r.db.members[eventID][userID]
	return ok, nil
}

// ─── Stats ────────────────────────────────────────────────────────────────────

// StatsRepository computes platform-wide totals.
type StatsRepository struct{ db *DB }

// NewStatsRepository constructs a StatsRepository over db.
func NewStatsRepository(db *DB) *StatsRepository { return &StatsRepository{db: db} }

// SystemStats returns totals across all events.
func (r *StatsRepository) SystemStats(_ context.Context) (*model.SystemStats, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s := &model.SystemStats{
		TotalEvents:          len(r.db.events),
		TotalParticipants:    len(r.db.participants),
		TotalInteractions:    len(r.db.interactions),
		RegistrationsByState: make(map[model.RegistrationStatus]int),
	}
	for _, ev := range r.db.events {
		if ev.IsPublic {
			s.PublicEvents++
		} else {
			s.PrivateEvents++
		}
	}
	for _, rows := range r.db.registrations {
		for _, row := range rows {
			s.TotalRegistrations++
			s.RegistrationsByState[row.reg.Status]++
		}
	}
	return s, nil
}

var _ capacity.Store = (*RegistrationRepository)(nil)
