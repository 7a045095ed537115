package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// InteractionRepository stores attendee interactions.
type InteractionRepository struct{ db *DB }

// NewInteractionRepository constructs an InteractionRepository over db.
func NewInteractionRepository(db *DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Create stores in, assigning an ID and timestamps.
func (r *InteractionRepository) Create(_ context.Context, in *model.Interaction) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	ts := now()
	in.CreatedAt, in.UpdatedAt = ts, ts

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *in
	r.db.interactions[in.ID] = &c
	return nil
}

// GetByID returns an interaction or model.ErrNotFound.
func (r *InteractionRepository) GetByID(_ context.Context, id string) (*model.Interaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	in, ok := r.db.interactions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	c := *in
	return &c, nil
}

// List returns interactions matching f, newest first.
func (r *InteractionRepository) List(_ context.Context, f model.InteractionFilter) ([]model.Interaction, error) {
	r.db.mu.RLock()
	out := make([]model.Interaction, 0)
	for _, in := range r.db.interactions {
		if in.EventID != f.EventID {
			continue
		}
		if f.Type != "" && in.Type != f.Type {
			continue
		}
		if !f.IncludeModerated && in.IsModerated {
			continue
		}
		out = append(out, *in)
	}
	r.db.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Update persists the moderation fields of in.
func (r *InteractionRepository) Update(_ context.Context, in *model.Interaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.interactions[in.ID]; !ok {
		return model.ErrNotFound
	}
	in.UpdatedAt = now()
	c := *in
	r.db.interactions[in.ID] = &c
	return nil
}

// Delete removes an interaction.
func (r *InteractionRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.interactions[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.db.interactions, id)
	return nil
}

// TypeCounts returns the per-type breakdown of an event's interactions.
func (r *InteractionRepository) TypeCounts(_ context.Context, eventID string) ([]model.InteractionTypeCount, error) {
	r.db.mu.RLock()
	byType := make(map[model.InteractionType]*model.InteractionTypeCount)
	for _, in := range r.db.interactions {
		if in.EventID != eventID {
			continue
		}
		c, ok := byType[in.Type]
		if !ok {
			c = &model.InteractionTypeCount{Type: in.Type}
			byType[in.Type] = c
		}
		c.Count++
		if in.IsModerated {
			c.ModeratedCount++
		}
	}
	r.db.mu.RUnlock()

	out := make([]model.InteractionTypeCount, 0, len(byType))
	for _, c := range byType {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}
