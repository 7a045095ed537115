package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

func sampleView() *model.PublicEvent {
	return &model.PublicEvent{
		Event: model.Event{
			ID:      "ev-1",
			Title:   "Go meetup",
			StartAt: time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC),
		},
		CurrentRegistrations: 3,
		IsRegistrationOpen:   true,
	}
}

func counting(view *model.PublicEvent, err error) (LoadFunc, *int) {
	calls := 0
	return func(context.Context) (*model.PublicEvent, error) {
		calls++
		return view, err
	}, &calls
}

func TestGet_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute, zap.NewNop())

	data, err := json.Marshal(sampleView())
	require.NoError(t, err)
	mock.ExpectGet(Key("ev-1")).SetVal(string(data))

	load, calls := counting(nil, errors.New("must not load"))
	got, err := c.Get(context.Background(), "ev-1", load)
	require.NoError(t, err)

	assert.Equal(t, sampleView(), got)
	assert.Zero(t, *calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_MissLoadsAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute, zap.NewNop())

	data, err := json.Marshal(sampleView())
	require.NoError(t, err)
	mock.ExpectGet(Key("ev-1")).RedisNil()
	mock.ExpectSet(Key("ev-1"), string(data), time.Minute).SetVal("OK")

	load, calls := counting(sampleView(), nil)
	got, err := c.Get(context.Background(), "ev-1", load)
	require.NoError(t, err)

	assert.Equal(t, sampleView(), got)
	assert.Equal(t, 1, *calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_RedisDownFallsBack(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute, zap.NewNop())
	mock.ExpectGet(Key("ev-1")).SetErr(errors.New("connection refused"))

	load, calls := counting(sampleView(), nil)
	got, err := c.Get(context.Background(), "ev-1", load)
	require.NoError(t, err)

	assert.Equal(t, "Go meetup", got.Title)
	assert.Equal(t, 1, *calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_LoadErrorIsNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute, zap.NewNop())
	mock.ExpectGet(Key("ev-1")).RedisNil()

	load, _ := counting(nil, model.ErrNotFound)
	_, err := c.Get(context.Background(), "ev-1", load)

	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute, zap.NewNop())
	mock.ExpectDel(Key("ev-1")).SetVal(1)

	c.Invalidate(context.Background(), "ev-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisabledIsPassThrough(t *testing.T) {
	c := New(nil, time.Minute, zap.NewNop())

	load, calls := counting(sampleView(), nil)
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "ev-1", load)
		require.NoError(t, err)
	}
	c.Invalidate(context.Background(), "ev-1")
	assert.Equal(t, 3, *calls)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "eventrsvp:event:abc:view", Key("abc"))
}
