package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// InteractionRepository handles persistence for attendee interactions.
type InteractionRepository struct {
	db *pgxpool.Pool
}

// NewInteractionRepository constructs an InteractionRepository.
func NewInteractionRepository(db *pgxpool.Pool) *InteractionRepository {
	return &InteractionRepository{db: db}
}

const interactionColumns = `id, event_id, participant_id, user_id, type, content, metadata,
	is_moderated, moderated_by, moderated_at, moderation_reason, created_at, updated_at`

func scanInteraction(row pgx.Row) (*model.Interaction, error) {
	var in model.Interaction
	err := row.Scan(&in.ID, &in.EventID, &in.ParticipantID, &in.UserID, &in.Type, &in.Content, &in.Metadata,
		&in.IsModerated, &in.ModeratedBy, &in.ModeratedAt, &in.ModerationReason, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// Create inserts in, assigning an ID and timestamps.
func (r *InteractionRepository) Create(ctx context.Context, in *model.Interaction) error {
	if !validID(in.EventID) {
		return model.ErrNotFound
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	ts := now()
	in.CreatedAt, in.UpdatedAt = ts, ts

	_, err := r.db.Exec(ctx,
		`INSERT INTO interactions (`+interactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		in.ID, in.EventID, in.ParticipantID, in.UserID, string(in.Type), in.Content, in.Metadata,
		in.IsModerated, in.ModeratedBy, in.ModeratedAt, in.ModerationReason, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return model.ErrNotFound
		}
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// GetByID returns an interaction or model.ErrNotFound.
func (r *InteractionRepository) GetByID(ctx context.Context, id string) (*model.Interaction, error) {
	if !validID(id) {
		return nil, model.ErrNotFound
	}
	in, err := scanInteraction(r.db.QueryRow(ctx, `SELECT `+interactionColumns+` FROM interactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get interaction: %w", err)
	}
	return in, nil
}

// List returns interactions matching f, newest first.
func (r *InteractionRepository) List(ctx context.Context, f model.InteractionFilter) ([]model.Interaction, error) {
	out := []model.Interaction{}
	if !validID(f.EventID) {
		return out, nil
	}

	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE event_id = $1`
	args := []any{f.EventID}
	if f.Type != "" {
		args = append(args, string(f.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if !f.IncludeModerated {
		query += " AND NOT is_moderated"
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

// Update persists the moderation fields of in.
func (r *InteractionRepository) Update(ctx context.Context, in *model.Interaction) error {
	if !validID(in.ID) {
		return model.ErrNotFound
	}
	in.UpdatedAt = now()
	tag, err := r.db.Exec(ctx,
		`UPDATE interactions
		 SET is_moderated = $2, moderated_by = $3, moderated_at = $4, moderation_reason = $5, updated_at = $6
		 WHERE id = $1`,
		in.ID, in.IsModerated, in.ModeratedBy, in.ModeratedAt, in.ModerationReason, in.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update interaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete removes an interaction.
func (r *InteractionRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return model.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM interactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete interaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// TypeCounts returns the per-type breakdown of an event's interactions.
func (r *InteractionRepository) TypeCounts(ctx context.Context, eventID string) ([]model.InteractionTypeCount, error) {
	out := []model.InteractionTypeCount{}
	if !validID(eventID) {
		return out, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT type, COUNT(*), COUNT(*) FILTER (WHERE is_moderated)
		 FROM interactions WHERE event_id = $1
		 GROUP BY type ORDER BY type`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.InteractionTypeCount
		if err := rows.Scan(&c.Type, &c.Count, &c.ModeratedCount); err != nil {
			return nil, fmt.Errorf("scan interaction count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
