package capacity_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/capacity"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/repository/memory"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db      *memory.DB
	regs    *memory.RegistrationRepository
	manager *capacity.Manager
	eventID string
}

func newFixture(t *testing.T, max *int, waitlist bool, deadline *time.Time) *fixture {
	t.Helper()
	db := memory.New()
	ev := &model.Event{
		Title:                "Go meetup",
		OwnerID:              "owner-1",
		StartAt:              baseTime.Add(72 * time.Hour),
		IsPublic:             true,
		MaxAttendees:         max,
		AllowWaitlist:        waitlist,
		RegistrationDeadline: deadline,
	}
	require.NoError(t, memory.NewEventRepository(db).Create(context.Background(), ev))

	regs := memory.NewRegistrationRepository(db)
	return &fixture{
		db:      db,
		regs:    regs,
		manager: capacity.NewManager(regs, capacity.WithClock(func() time.Time { return baseTime })),
		eventID: ev.ID,
	}
}

func intPtr(n int) *int { return &n }

func (f *fixture) submit(t *testing.T, participantID string) *model.Registration {
	t.Helper()
	reg, err := f.manager.Submit(context.Background(), f.eventID, participantID, model.RequestMeta{})
	require.NoError(t, err)
	return reg
}

// state returns the current registration of every participant keyed by id.
func (f *fixture) state(t *testing.T) map[string]model.Registration {
	t.Helper()
	views, err := f.regs.ListByEvent(context.Background(), f.eventID, nil)
	require.NoError(t, err)
	out := make(map[string]model.Registration, len(views))
	for _, v := range views {
		if cur, ok := out[v.ParticipantID]; ok && (cur.Status.IsCurrent() || !v.Status.IsCurrent()) {
			continue
		}
		out[v.ParticipantID] = v.Registration
	}
	return out
}

func (f *fixture) waitlistPositions(t *testing.T) map[string]int {
	t.Helper()
	out := make(map[string]int)
	for id, reg := range f.state(t) {
		if reg.Status == model.StatusWaitlisted {
			require.NotNil(t, reg.WaitlistPosition, "waitlisted %s has no position", id)
			out[id] = *reg.WaitlistPosition
		} else {
			assert.Nil(t, reg.WaitlistPosition, "%s is %s but has a position", id, reg.Status)
		}
	}
	return out
}

func TestSubmit_RegistersWhileSeatsRemain(t *testing.T) {
	f := newFixture(t, intPtr(2), false, nil)

	reg := f.submit(t, "alice")

	assert.Equal(t, model.StatusRegistered, reg.Status)
	assert.Nil(t, reg.WaitlistPosition)
	assert.Equal(t, baseTime, reg.RSVPAt)
	assert.Equal(t, "web", reg.Source)
	assert.NotEmpty(t, reg.ID)
}

func TestSubmit_UnlimitedEventNeverFills(t *testing.T) {
	f := newFixture(t, nil, false, nil)

	for i := 0; i < 50; i++ {
		reg := f.submit(t, fmt.Sprintf("p-%d", i))
		assert.Equal(t, model.StatusRegistered, reg.Status)
	}
}

func TestSubmit_FullWithoutWaitlist(t *testing.T) {
	f := newFixture(t, intPtr(1), false, nil)
	f.submit(t, "alice")

	reg, err := f.manager.Submit(context.Background(), f.eventID, "bob", model.RequestMeta{})

	assert.ErrorIs(t, err, model.ErrEventFull)
	assert.Nil(t, reg)
	assert.Len(t, f.state(t), 1, "a rejected RSVP must not create a registration")
}

func TestSubmit_WaitlistPositionsFollowSubmissionOrder(t *testing.T) {
	f := newFixture(t, intPtr(2), true, nil)
	f.submit(t, "a")
	f.submit(t, "b")

	for i, id := range []string{"c", "d", "e"} {
		reg := f.submit(t, id)
		assert.Equal(t, model.StatusWaitlisted, reg.Status)
		require.NotNil(t, reg.WaitlistPosition)
		assert.Equal(t, i+1, *reg.WaitlistPosition)
	}
	assert.Equal(t, map[string]int{"c": 1, "d": 2, "e": 3}, f.waitlistPositions(t))
}

func TestSubmit_DeadlineExpiredRegardlessOfCapacity(t *testing.T) {
	deadline := baseTime.Add(-time.Minute)
	f := newFixture(t, nil, true, &deadline)

	_, err := f.manager.Submit(context.Background(), f.eventID, "alice", model.RequestMeta{})

	assert.ErrorIs(t, err, model.ErrDeadlineExpired)
	assert.Empty(t, f.state(t))
}

func TestSubmit_AtDeadlineIsAccepted(t *testing.T) {
	deadline := baseTime
	f := newFixture(t, nil, false, &deadline)

	reg := f.submit(t, "alice")
	assert.Equal(t, model.StatusRegistered, reg.Status)
}

func TestSubmit_Duplicate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(f *fixture)
	}{
		{"registered", func(f *fixture) {}},
		{"checked in", func(f *fixture) {
			_, err := f.manager.CheckIn(context.Background(), f.eventID, "alice")
			require.NoError(t, err)
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, intPtr(5), true, nil)
			f.submit(t, "alice")
			tc.setup(f)

			_, err := f.manager.Submit(context.Background(), f.eventID, "alice", model.RequestMeta{})
			assert.ErrorIs(t, err, model.ErrDuplicateRegistration)
		})
	}
}

func TestSubmit_DuplicateWhileWaitlisted(t *testing.T) {
	f := newFixture(t, intPtr(1), true, nil)
	f.submit(t, "alice")
	f.submit(t, "bob")

	_, err := f.manager.Submit(context.Background(), f.eventID, "bob", model.RequestMeta{})

	assert.ErrorIs(t, err, model.ErrDuplicateRegistration)
	assert.Equal(t, map[string]int{"bob": 1}, f.waitlistPositions(t))
}

func TestSubmit_ReRegisterAfterCancel(t *testing.T) {
	f := newFixture(t, intPtr(1), false, nil)
	first := f.submit(t, "alice")
	_, err := f.manager.Cancel(context.Background(), f.eventID, "alice")
	require.NoError(t, err)

	second := f.submit(t, "alice")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, model.StatusRegistered, second.Status)
}

func TestSubmit_UnknownEvent(t *testing.T) {
	f := newFixture(t, nil, false, nil)

	_, err := f.manager.Submit(context.Background(), "missing", "alice", model.RequestMeta{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCancel_RegisteredPromotesHeadOfWaitlist(t *testing.T) {
	f := newFixture(t, intPtr(1), true, nil)
	f.submit(t, "a")
	f.submit(t, "w1")
	f.submit(t, "w2")
	f.submit(t, "w3")

	tr, err := f.manager.Cancel(context.Background(), f.eventID, "a")
	require.NoError(t, err)

	assert.Equal(t, model.StatusCancelled, tr.Registration.Status)
	require.NotNil(t, tr.Promoted)
	assert.Equal(t, "w1", tr.Promoted.ParticipantID)
	assert.Equal(t, model.StatusRegistered, tr.Promoted.Status)
	assert.Nil(t, tr.Promoted.WaitlistPosition)

	assert.Equal(t, map[string]int{"w2": 1, "w3": 2}, f.waitlistPositions(t))
}

func TestCancel_RegisteredWithEmptyWaitlist(t *testing.T) {
	f := newFixture(t, intPtr(2), true, nil)
	f.submit(t, "a")

	tr, err := f.manager.Cancel(context.Background(), f.eventID, "a")
	require.NoError(t, err)

	assert.Nil(t, tr.Promoted)
	assert.Equal(t, model.StatusCancelled, f.state(t)["a"].Status)
}

func TestCancel_WaitlistedClosesGap(t *testing.T) {
	f := newFixture(t, intPtr(1), true, nil)
	f.submit(t, "a")
	for _, id := range []string{"w1", "w2", "w3", "w4"} {
		f.submit(t, id)
	}

	tr, err := f.manager.Cancel(context.Background(), f.eventID, "w2")
	require.NoError(t, err)

	assert.Nil(t, tr.Promoted)
	assert.Nil(t, tr.Registration.WaitlistPosition)
	assert.Equal(t, map[string]int{"w1": 1, "w3": 2, "w4": 3}, f.waitlistPositions(t))
	assert.Equal(t, model.StatusRegistered, f.state(t)["a"].Status)
}

func TestCancel_TwiceIsNotEligible(t *testing.T) {
	f := newFixture(t, intPtr(1), true, nil)
	f.submit(t, "a")
	f.submit(t, "w1")
	f.submit(t, "w2")
	_, err := f.manager.Cancel(context.Background(), f.eventID, "w1")
	require.NoError(t, err)
	before := f.state(t)

	_, err = f.manager.Cancel(context.Background(), f.eventID, "w1")

	assert.ErrorIs(t, err, model.ErrRegistrationNotEligible)
	assert.Equal(t, before, f.state(t))
}

func TestCancel_CheckedInIsNotEligible(t *testing.T) {
	f := newFixture(t, nil, false, nil)
	f.submit(t, "a")
	_, err := f.manager.CheckIn(context.Background(), f.eventID, "a")
	require.NoError(t, err)

	_, err = f.manager.Cancel(context.Background(), f.eventID, "a")
	assert.ErrorIs(t, err, model.ErrRegistrationNotEligible)
}

func TestCancel_UnknownRegistration(t *testing.T) {
	f := newFixture(t, nil, false, nil)

	_, err := f.manager.Cancel(context.Background(), f.eventID, "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestScenario_CancelPromoteThenJoinBack(t *testing.T) {
	f := newFixture(t, intPtr(2), true, nil)

	assert.Equal(t, model.StatusRegistered, f.submit(t, "A").Status)
	assert.Equal(t, model.StatusRegistered, f.submit(t, "B").Status)
	c := f.submit(t, "C")
	assert.Equal(t, model.StatusWaitlisted, c.Status)
	assert.Equal(t, 1, *c.WaitlistPosition)
	d := f.submit(t, "D")
	assert.Equal(t, 2, *d.WaitlistPosition)

	tr, err := f.manager.Cancel(context.Background(), f.eventID, "A")
	require.NoError(t, err)
	require.NotNil(t, tr.Promoted)
	assert.Equal(t, "C", tr.Promoted.ParticipantID)

	st := f.state(t)
	assert.Equal(t, model.StatusCancelled, st["A"].Status)
	assert.Equal(t, model.StatusRegistered, st["B"].Status)
	assert.Equal(t, model.StatusRegistered, st["C"].Status)
	assert.Equal(t, model.StatusWaitlisted, st["D"].Status)
	assert.Equal(t, 1, *st["D"].WaitlistPosition)

	e := f.submit(t, "E")
	assert.Equal(t, model.StatusWaitlisted, e.Status)
	assert.Equal(t, 2, *e.WaitlistPosition)
}

func TestCheckIn_Registered(t *testing.T) {
	f := newFixture(t, intPtr(1), false, nil)
	f.submit(t, "a")

	reg, err := f.manager.CheckIn(context.Background(), f.eventID, "a")
	require.NoError(t, err)

	assert.Equal(t, model.StatusCheckedIn, reg.Status)
	require.NotNil(t, reg.CheckInAt)
	assert.Equal(t, baseTime, *reg.CheckInAt)
}

func TestCheckIn_WaitlistedLeavesQueueWithoutPromotion(t *testing.T) {
	f := newFixture(t, intPtr(1), true, nil)
	f.submit(t, "a")
	f.submit(t, "w1")
	f.submit(t, "w2")
	f.submit(t, "w3")

	reg, err := f.manager.CheckIn(context.Background(), f.eventID, "w2")
	require.NoError(t, err)

	assert.Equal(t, model.StatusCheckedIn, reg.Status)
	assert.Nil(t, reg.WaitlistPosition)
	assert.Equal(t, map[string]int{"w1": 1, "w3": 2}, f.waitlistPositions(t))
	assert.Equal(t, model.StatusRegistered, f.state(t)["a"].Status)
}

func TestCheckIn_NotEligible(t *testing.T) {
	f := newFixture(t, nil, false, nil)
	f.submit(t, "a")
	f.submit(t, "b")
	_, err := f.manager.CheckIn(context.Background(), f.eventID, "a")
	require.NoError(t, err)
	_, err = f.manager.Cancel(context.Background(), f.eventID, "b")
	require.NoError(t, err)

	_, err = f.manager.CheckIn(context.Background(), f.eventID, "a")
	assert.ErrorIs(t, err, model.ErrRegistrationNotEligible, "already checked in")

	_, err = f.manager.CheckIn(context.Background(), f.eventID, "b")
	assert.ErrorIs(t, err, model.ErrRegistrationNotEligible, "cancelled")

	_, err = f.manager.CheckIn(context.Background(), f.eventID, "c")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestNoShow_KeepsSeatAndWaitlist(t *testing.T) {
	f := newFixture(t, intPtr(1), true, nil)
	f.submit(t, "a")
	f.submit(t, "w1")
	_, err := f.manager.CheckIn(context.Background(), f.eventID, "a")
	require.NoError(t, err)

	reg, err := f.manager.NoShow(context.Background(), f.eventID, "a")
	require.NoError(t, err)

	assert.Equal(t, model.StatusNoShow, reg.Status)
	assert.Equal(t, map[string]int{"w1": 1}, f.waitlistPositions(t))

	_, err = f.manager.NoShow(context.Background(), f.eventID, "a")
	assert.ErrorIs(t, err, model.ErrRegistrationNotEligible)
	_, err = f.manager.NoShow(context.Background(), f.eventID, "w1")
	assert.ErrorIs(t, err, model.ErrRegistrationNotEligible)
}

func TestBulkCheckIn_IsolatesFailures(t *testing.T) {
	f := newFixture(t, nil, false, nil)
	f.submit(t, "a")
	f.submit(t, "b")

	out := f.manager.BulkCheckIn(context.Background(), f.eventID, []string{"a", "ghost", "b", "a"})
	require.Len(t, out, 4)

	assert.NoError(t, out[0].Err)
	assert.Equal(t, model.StatusCheckedIn, out[0].Registration.Status)
	assert.ErrorIs(t, out[1].Err, model.ErrNotFound)
	assert.NoError(t, out[2].Err)
	assert.ErrorIs(t, out[3].Err, model.ErrRegistrationNotEligible)
	assert.Equal(t, "ghost", out[1].ParticipantID)
}

func TestSubmit_ConcurrentNeverOverbooks(t *testing.T) {
	const seats, extra = 10, 15
	f := newFixture(t, intPtr(seats), false, nil)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		registered int
		full       int
	)
	for i := 0; i < seats+extra; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.manager.Submit(context.Background(), f.eventID, fmt.Sprintf("p-%d", i), model.RequestMeta{})
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
		}(i)
	}
	wg.Wait()

	assert.Equal(t, seats, registered)
	assert.Equal(t, extra, full)
}

func TestSubmit_ConcurrentWaitlistStaysDense(t *testing.T) {
	const seats, extra = 5, 20
	f := newFixture(t, intPtr(seats), true, nil)

	var wg sync.WaitGroup
	for i := 0; i < seats+extra; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.manager.Submit(context.Background(), f.eventID, fmt.Sprintf("p-%d", i), model.RequestMeta{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	positions := f.waitlistPositions(t)
	require.Len(t, positions, extra)
	got := make([]int, 0, extra)
	for _, p := range positions {
		got = append(got, p)
	}
	sort.Ints(got)
	for i, p := range got {
		assert.Equal(t, i+1, p)
	}
}

func TestCancel_ConcurrentKeepsWaitlistDense(t *testing.T) {
	f := newFixture(t, intPtr(3), true, nil)
	for i := 0; i < 13; i++ {
		f.submit(t, fmt.Sprintf("p-%d", i))
	}

	var wg sync.WaitGroup
	for _, id := range []string{"p-0", "p-1", "p-4", "p-7", "p-9", "p-12"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.manager.Cancel(context.Background(), f.eventID, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	seated := 0
	for _, reg := range f.state(t) {
		if reg.Status.HoldsSeat() {
			seated++
		}
	}
	assert.Equal(t, 3, seated)

	positions := f.waitlistPositions(t)
	got := make([]int, 0, len(positions))
	for _, p := range positions {
		got = append(got, p)
	}
	sort.Ints(got)
	for i, p := range got {
		assert.Equal(t, i+1, p)
	}
	assert.Len(t, got, 13-6-3)
}
