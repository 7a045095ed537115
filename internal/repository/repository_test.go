package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/capacity"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/database"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/repository"
)

// openPool connects to TEST_POSTGRES_DSN and applies the schema. Tests that
// need it are skipped when the variable is unset.
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool))
	return pool
}

func createEvent(t *testing.T, pool *pgxpool.Pool, max *int, waitlist bool) *model.Event {
	t.Helper()
	ev := &model.Event{
		OwnerID:       "owner-1",
		Title:         "Integration " + t.Name(),
		Tags:          []string{"go", "postgres"},
		StartAt:       time.Now().Add(48 * time.Hour).UTC().Truncate(time.Microsecond),
		IsPublic:      true,
		MaxAttendees:  max,
		AllowWaitlist: waitlist,
		CustomFields:  []model.CustomField{{Name: "diet", Type: "text"}},
	}
	require.NoError(t, repository.NewEventRepository(pool).Create(context.Background(), ev))
	return ev
}

func createParticipant(t *testing.T, pool *pgxpool.Pool, name string) string {
	t.Helper()
	p := &model.Participant{Name: name, Email: fmt.Sprintf("%s+%d@example.com", name, time.Now().UnixNano())}
	require.NoError(t, repository.NewParticipantRepository(pool).Upsert(context.Background(), p))
	return p.ID
}

func intPtr(n int) *int { return &n }

func TestEventRepository_RoundTrip(t *testing.T) {
	pool := openPool(t)
	ev := createEvent(t, pool, intPtr(3), true)

	got, err := repository.NewEventRepository(pool).GetByID(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Title, got.Title)
	assert.Equal(t, []string{"go", "postgres"}, got.Tags)
	require.NotNil(t, got.MaxAttendees)
	assert.Equal(t, 3, *got.MaxAttendees)
	assert.Equal(t, ev.CustomFields, got.CustomFields)

	_, err = repository.NewEventRepository(pool).GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestParticipantRepository_UpsertByEmail(t *testing.T) {
	pool := openPool(t)
	repo := repository.NewParticipantRepository(pool)
	email := fmt.Sprintf("Mixed.Case+%d@Example.com", time.Now().UnixNano())

	first := &model.Participant{Name: "First", Email: email}
	require.NoError(t, repo.Upsert(context.Background(), first))
	second := &model.Participant{Name: "Second", Email: email}
	require.NoError(t, repo.Upsert(context.Background(), second))

	assert.Equal(t, first.ID, second.ID)
	got, err := repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)
}

func TestRegistrationRepository_CapacityScenario(t *testing.T) {
	pool := openPool(t)
	ev := createEvent(t, pool, intPtr(2), true)
	regs := repository.NewRegistrationRepository(pool)
	m := capacity.NewManager(regs)
	ctx := context.Background()

	ids := map[string]string{}
	for _, name := range []string{"A", "B", "C", "D"} {
		ids[name] = createParticipant(t, pool, name)
		_, err := m.Submit(ctx, ev.ID, ids[name], model.RequestMeta{Source: "test"})
		require.NoError(t, err)
	}

	tr, err := m.Cancel(ctx, ev.ID, ids["A"])
	require.NoError(t, err)
	require.NotNil(t, tr.Promoted)
	assert.Equal(t, ids["C"], tr.Promoted.ParticipantID)

	ids["E"] = createParticipant(t, pool, "E")
	e, err := m.Submit(ctx, ev.ID, ids["E"], model.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitlisted, e.Status)
	assert.Equal(t, 2, *e.WaitlistPosition)

	_, err = m.Submit(ctx, ev.ID, ids["B"], model.RequestMeta{})
	assert.ErrorIs(t, err, model.ErrDuplicateRegistration)

	counts, err := regs.StatusCounts(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.StatusRegistered])
	assert.Equal(t, 2, counts[model.StatusWaitlisted])
	assert.Equal(t, 1, counts[model.StatusCancelled])

	waitlisted, err := regs.ListByEvent(ctx, ev.ID, []model.RegistrationStatus{model.StatusWaitlisted})
	require.NoError(t, err)
	require.Len(t, waitlisted, 2)
	assert.Equal(t, ids["E"], waitlisted[0].ParticipantID)
	assert.Equal(t, "E", waitlisted[0].ParticipantName)
}

func TestRegistrationRepository_ConcurrentSubmitNeverOverbooks(t *testing.T) {
	pool := openPool(t)
	const seats, extra = 5, 10
	ev := createEvent(t, pool, intPtr(seats), false)
	m := capacity.NewManager(repository.NewRegistrationRepository(pool))

	participants := make([]string, seats+extra)
	for i := range participants {
		participants[i] = createParticipant(t, pool, fmt.Sprintf("p%d", i))
	}

	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		registered, full int
	)
	for _, pid := range participants {
		wg.Add(1)
		go func(pid string) {
			defer wg.Done()
			_, err := m.Submit(context.Background(), ev.ID, pid, model.RequestMeta{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				registered++
			case errors.Is(err, model.ErrEventFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(pid)
	}
	wg.Wait()

	assert.Equal(t, seats, registered)
	assert.Equal(t, extra, full)
}

func TestInteractionRepository_Moderation(t *testing.T) {
	pool := openPool(t)
	ev := createEvent(t, pool, nil, false)
	repo := repository.NewInteractionRepository(pool)
	ctx := context.Background()

	keep := &model.Interaction{EventID: ev.ID, UserID: "u-1", Type: model.InteractionComment, Content: "great"}
	hide := &model.Interaction{EventID: ev.ID, UserID: "u-2", Type: model.InteractionLike}
	require.NoError(t, repo.Create(ctx, keep))
	require.NoError(t, repo.Create(ctx, hide))

	at := time.Now().UTC()
	hide.IsModerated, hide.ModeratedBy, hide.ModeratedAt, hide.ModerationReason = true, "admin", &at, "spam"
	require.NoError(t, repo.Update(ctx, hide))

	visible, err := repo.List(ctx, model.InteractionFilter{EventID: ev.ID, Limit: 100})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, keep.ID, visible[0].ID)

	counts, err := repo.TypeCounts(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.InteractionTypeCount{
		{Type: model.InteractionComment, Count: 1},
		{Type: model.InteractionLike, Count: 1, ModeratedCount: 1},
	}, counts)

	require.NoError(t, repo.Delete(ctx, keep.ID))
	assert.ErrorIs(t, repo.Delete(ctx, keep.ID), model.ErrNotFound)
}
