package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Close() { f.closed = true }

func TestKafkaPublish(t *testing.T) {
	fp := &fakeProducer{}
	k := &Kafka{client: fp, topic: "registration-events"}

	pos := 2
	reg := &model.Registration{
		ID: "reg-1", EventID: "ev-1", ParticipantID: "p-1",
		Status: model.StatusWaitlisted, WaitlistPosition: &pos,
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, k.Publish(context.Background(), NewEvent(TypeForSubmit(reg), reg)))

	require.Len(t, fp.records, 1)
	rec := fp.records[0]
	assert.Equal(t, "registration-events", rec.Topic)
	assert.Equal(t, []byte("ev-1"), rec.Key)
	assert.Contains(t, rec.Headers, kgo.RecordHeader{Key: "event_type", Value: []byte("registration.waitlisted")})

	var got Event
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, Waitlisted, got.Type)
	assert.Equal(t, "reg-1", got.RegistrationID)
	assert.Equal(t, 2, *got.WaitlistPosition)
	assert.NotEmpty(t, got.ID)

	k.Close()
	assert.True(t, fp.closed)
}

func TestKafkaPublish_Error(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	k := &Kafka{client: fp, topic: "t"}

	err := k.Publish(context.Background(), NewEvent(Cancelled, &model.Registration{ID: "r", EventID: "e"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaPublish_NothingToSend(t *testing.T) {
	fp := &fakeProducer{}
	k := &Kafka{client: fp, topic: "t"}

	require.NoError(t, k.Publish(context.Background()))
	assert.Empty(t, fp.records)
}

func TestTypeForSubmit(t *testing.T) {
	assert.Equal(t, Registered, TypeForSubmit(&model.Registration{Status: model.StatusRegistered}))
	assert.Equal(t, Waitlisted, TypeForSubmit(&model.Registration{Status: model.StatusWaitlisted}))
}
