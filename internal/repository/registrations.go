package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/capacity"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// RegistrationRepository handles persistence for registrations and is the
// capacity.Store of the postgres driver.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

var _ capacity.Store = (*RegistrationRepository)(nil)

// InEventTx runs fn inside a transaction that holds the event's row lock.
//
// SELECT … FOR UPDATE blocks every other InEventTx on the same event until
// this transaction commits or rolls back, so the count-then-write sequences
// in fn never interleave. Events do not block each other.
func (r *RegistrationRepository) InEventTx(ctx context.Context, eventID string, fn func(ctx context.Context, tx capacity.Tx, event *model.Event) error) (err error) {
	if !validID(eventID) {
		return model.ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	event, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	if err = fn(ctx, &pgTx{tx: tx}, event); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const registrationColumns = `id, event_id, participant_id, status, waitlist_position,
	rsvp_at, check_in_at, source, ip_address, user_agent, created_at, updated_at`

func scanRegistration(row pgx.Row, extra ...any) (*model.Registration, error) {
	var reg model.Registration
	dest := []any{&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.Status, &reg.WaitlistPosition,
		&reg.RSVPAt, &reg.CheckInAt, &reg.Source, &reg.IPAddress, &reg.UserAgent, &reg.CreatedAt, &reg.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &reg, nil
}

func statusStrings(statuses []model.RegistrationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// ListByEvent returns an event's registrations with one of statuses, newest
// first, joined with participant details. No statuses means all.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string, statuses []model.RegistrationStatus) ([]model.RegistrationView, error) {
	ok, err := eventExists(ctx, r.db, eventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrNotFound
	}

	query := `SELECT r.id, r.event_id, r.participant_id, r.status, r.waitlist_position,
	                 r.rsvp_at, r.check_in_at, r.source, r.ip_address, r.user_agent, r.created_at, r.updated_at,
	                 p.name, p.email, p.phone
	          FROM registrations r
	          JOIN participants p ON p.id = r.participant_id
	          WHERE r.event_id = $1`
	args := []any{eventID}
	if len(statuses) > 0 {
		query += ` AND r.status = ANY($2)`
		args = append(args, statusStrings(statuses))
	}
	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	views := []model.RegistrationView{}
	for rows.Next() {
		var v model.RegistrationView
		reg, err := scanRegistration(rows, &v.ParticipantName, &v.ParticipantEmail, &v.ParticipantPhone)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		v.Registration = *reg
		views = append(views, v)
	}
	return views, rows.Err()
}

// StatusCounts returns how many registrations of eventID are in each status.
func (r *RegistrationRepository) StatusCounts(ctx context.Context, eventID string) (map[model.RegistrationStatus]int, error) {
	ok, err := eventExists(ctx, r.db, eventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrNotFound
	}

	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM registrations WHERE event_id = $1 GROUP BY status`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.RegistrationStatus]int, len(model.AllStatuses))
	for rows.Next() {
		var status model.RegistrationStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// pgTx is the capacity.Tx of the postgres driver.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Latest(ctx context.Context, eventID, participantID string) (*model.Registration, error) {
	if !validID(participantID) {
		return nil, model.ErrNotFound
	}
	reg, err := scanRegistration(t.tx.QueryRow(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1 AND participant_id = $2
		 ORDER BY (status IN ('REGISTERED', 'WAITLISTED', 'CHECKED_IN')) DESC, created_at DESC, id DESC
		 LIMIT 1`,
		eventID, participantID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

func (t *pgTx) Count(ctx context.Context, eventID string, statuses ...model.RegistrationStatus) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = ANY($2)`,
		eventID, statusStrings(statuses),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (t *pgTx) Insert(ctx context.Context, reg *model.Registration) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		reg.ID, reg.EventID, reg.ParticipantID, string(reg.Status), reg.WaitlistPosition,
		reg.RSVPAt, reg.CheckInAt, reg.Source, reg.IPAddress, reg.UserAgent, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return model.ErrDuplicateRegistration
		case pgForeignKeyViolation:
			return model.ErrNotFound
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (t *pgTx) Save(ctx context.Context, reg *model.Registration) error {
	reg.UpdatedAt = now()
	tag, err := t.tx.Exec(ctx,
		`UPDATE registrations
		 SET status = $2, waitlist_position = $3, check_in_at = $4, updated_at = $5
		 WHERE id = $1`,
		reg.ID, string(reg.Status), reg.WaitlistPosition, reg.CheckInAt, reg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *pgTx) FirstWaitlisted(ctx context.Context, eventID string) (*model.Registration, error) {
	reg, err := scanRegistration(t.tx.QueryRow(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1 AND status = 'WAITLISTED'
		 ORDER BY waitlist_position ASC
		 LIMIT 1`,
		eventID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("find waitlist head: %w", err)
	}
	return reg, nil
}

func (t *pgTx) ShiftWaitlist(ctx context.Context, eventID string, after int) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE registrations
		 SET waitlist_position = waitlist_position - 1, updated_at = $3
		 WHERE event_id = $1 AND status = 'WAITLISTED' AND waitlist_position > $2`,
		eventID, after, now(),
	)
	if err != nil {
		return fmt.Errorf("shift waitlist: %w", err)
	}
	return nil
}
