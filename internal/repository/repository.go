// Package repository implements all database queries for the RSVP service.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// validID reports whether id can be a primary key. Anything else cannot
// exist, so lookups answer model.ErrNotFound without a round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func now() time.Time { return time.Now().UTC() }

// ─── Events ───────────────────────────────────────────────────────────────────

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, owner_id, title, description, location, tags, image_url,
	start_at, end_at, is_public, max_attendees, allow_waitlist,
	registration_deadline, custom_fields, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.Location, &e.Tags, &e.ImageURL,
		&e.StartAt, &e.EndAt, &e.IsPublic, &e.MaxAttendees, &e.AllowWaitlist,
		&e.RegistrationDeadline, &e.CustomFields, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts ev, assigning an ID and timestamps.
func (r *EventRepository) Create(ctx context.Context, ev *model.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now()
	}
	ev.UpdatedAt = ev.CreatedAt

	tags := ev.Tags
	if tags == nil {
		tags = []string{}
	}
	fields := ev.CustomFields
	if fields == nil {
		fields = []model.CustomField{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		ev.ID, ev.OwnerID, ev.Title, ev.Description, ev.Location, tags, ev.ImageURL,
		ev.StartAt, ev.EndAt, ev.IsPublic, ev.MaxAttendees, ev.AllowWaitlist,
		ev.RegistrationDeadline, fields, ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or model.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, model.ErrNotFound
	}
	ev, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// Search returns public events matching f ordered by start time, plus the
// total number of matches.
func (r *EventRepository) Search(ctx context.Context, f model.EventFilter) ([]model.Event, int, error) {
	where := []string{"is_public"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		p := arg("%" + f.Query + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s OR location ILIKE %[1]s)", p))
	}
	if len(f.Tags) > 0 {
		where = append(where, "tags && "+arg(f.Tags))
	}
	if f.Location != "" {
		where = append(where, "location ILIKE "+arg("%"+f.Location+"%"))
	}
	if f.StartFrom != nil {
		where = append(where, "start_at >= "+arg(*f.StartFrom))
	}
	if f.StartTo != nil {
		where = append(where, "start_at <= "+arg(*f.StartTo))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + cond + ` ORDER BY start_at ASC, id ASC`
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	query += " OFFSET " + arg(f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, total, rows.Err()
}

// Availability counts the seat-relevant registrations of an event.
func (r *EventRepository) Availability(ctx context.Context, id string) (model.Availability, error) {
	if !validID(id) {
		return model.Availability{}, model.ErrNotFound
	}
	var a model.Availability
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(r.id) FILTER (WHERE r.status = 'REGISTERED'),
		        COUNT(r.id) FILTER (WHERE r.status = 'CHECKED_IN'),
		        COUNT(r.id) FILTER (WHERE r.status = 'WAITLISTED')
		 FROM events e
		 LEFT JOIN registrations r ON r.event_id = e.id
		 WHERE e.id = $1
		 GROUP BY e.id`,
		id,
	).Scan(&a.Registered, &a.CheckedIn, &a.Waitlisted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Availability{}, model.ErrNotFound
		}
		return model.Availability{}, fmt.Errorf("event availability: %w", err)
	}
	return a, nil
}

func eventExists(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var ok bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check event: %w", err)
	}
	return ok, nil
}

// ─── Participants ─────────────────────────────────────────────────────────────

// ParticipantRepository handles persistence for participants.
type ParticipantRepository struct {
	db *pgxpool.Pool
}

// NewParticipantRepository constructs a ParticipantRepository.
func NewParticipantRepository(db *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Upsert inserts p or refreshes the participant with the same email. p.ID is
// set to the stored participant's ID.
func (r *ParticipantRepository) Upsert(ctx context.Context, p *model.Participant) error {
	p.Email = strings.ToLower(p.Email)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	responses := p.CustomFieldResponses
	if responses == nil {
		responses = []model.CustomFieldResponse{}
	}

	ts := now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO participants (id, name, email, phone, notes, custom_field_responses, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name,
		     phone = EXCLUDED.phone,
		     notes = EXCLUDED.notes,
		     custom_field_responses = EXCLUDED.custom_field_responses,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at, updated_at`,
		p.ID, p.Name, p.Email, p.Phone, p.Notes, responses, ts,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// GetByID returns a participant or model.ErrNotFound.
func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	if !validID(id) {
		return nil, model.ErrNotFound
	}
	var p model.Participant
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, phone, notes, custom_field_responses, created_at, updated_at
		 FROM participants WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Notes, &p.CustomFieldResponses, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &p, nil
}

// ─── Members ──────────────────────────────────────────────────────────────────

// MemberRepository handles event staff assignments.
type MemberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository constructs a MemberRepository.
func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

// Add assigns m.UserID to m.EventID, replacing an existing assignment.
func (r *MemberRepository) Add(ctx context.Context, m *model.EventMember) error {
	if !validID(m.EventID) {
		return model.ErrNotFound
	}
	if m.AddedAt.IsZero() {
		m.AddedAt = now()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO event_members (event_id, user_id, role, added_by, added_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id, user_id) DO UPDATE
		 SET role = EXCLUDED.role, added_by = EXCLUDED.added_by, added_at = EXCLUDED.added_at`,
		m.EventID, m.UserID, m.Role, m.AddedBy, m.AddedAt,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return model.ErrNotFound
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// List returns an event's members ordered by when they were added.
func (r *MemberRepository) List(ctx context.Context, eventID string) ([]model.EventMember, error) {
	members := []model.EventMember{}
	if !validID(eventID) {
		return members, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT event_id, user_id, role, added_by, added_at
		 FROM event_members WHERE event_id = $1
		 ORDER BY added_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.EventMember
		if err := rows.Scan(&m.EventID, &m.UserID, &m.Role, &m.AddedBy, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// IsMember reports whether userID is on eventID's staff.
func (r *MemberRepository) IsMember(ctx context.Context, eventID, userID string) (bool, error) {
	if !validID(eventID) {
		return false, nil
	}
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_members WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return ok, nil
}

// ─── Stats ────────────────────────────────────────────────────────────────────

// StatsRepository computes platform-wide totals.
type StatsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository constructs a StatsRepository.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// SystemStats returns totals across all events.
func (r *StatsRepository) SystemStats(ctx context.Context) (*model.SystemStats, error) {
	s := &model.SystemStats{RegistrationsByState: make(map[model.RegistrationStatus]int)}
	err := r.db.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM events),
		        (SELECT COUNT(*) FROM events WHERE is_public),
		        (SELECT COUNT(*) FROM participants),
		        (SELECT COUNT(*) FROM interactions)`,
	).Scan(&s.TotalEvents, &s.PublicEvents, &s.TotalParticipants, &s.TotalInteractions)
	if err != nil {
		return nil, fmt.Errorf("system totals: %w", err)
	}
	s.PrivateEvents = s.TotalEvents - s.PublicEvents

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM registrations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("registration totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status model.RegistrationStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan registration total: %w", err)
		}
		s.RegistrationsByState[status] = n
		s.TotalRegistrations += n
	}
	return s, rows.Err()
}
