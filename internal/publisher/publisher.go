// Package publisher emits registration lifecycle events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// EventType names a registration lifecycle event.
type EventType string

const (
	Registered EventType = "registration.registered"
	Waitlisted EventType = "registration.waitlisted"
	Promoted   EventType = "registration.promoted"
	Cancelled  EventType = "registration.cancelled"
	CheckedIn  EventType = "registration.checked_in"
	NoShow     EventType = "registration.no_show"
)

// Event is the message payload.
type Event struct {
	ID               string                   `json:"id"`
	Type             EventType                `json:"type"`
	EventID          string                   `json:"eventId"`
	ParticipantID    string                   `json:"participantId"`
	RegistrationID   string                   `json:"registrationId"`
	Status           model.RegistrationStatus `json:"status"`
	WaitlistPosition *int                     `json:"waitlistPosition,omitempty"`
	OccurredAt       time.Time                `json:"occurredAt"`
}

// NewEvent describes reg having just undergone typ.
func NewEvent(typ EventType, reg *model.Registration) Event {
	return Event{
		ID:               uuid.NewString(),
		Type:             typ,
		EventID:          reg.EventID,
		ParticipantID:    reg.ParticipantID,
		RegistrationID:   reg.ID,
		Status:           reg.Status,
		WaitlistPosition: reg.WaitlistPosition,
		OccurredAt:       reg.UpdatedAt,
	}
}

// TypeForSubmit picks the event type for a freshly created registration.
func TypeForSubmit(reg *model.Registration) EventType {
	if reg.Status == model.StatusWaitlisted {
		return Waitlisted
	}
	return Registered
}

// Publisher sends lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close()
}

// Noop discards events. It is used when Kafka is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, ...Event) error { return nil }
func (Noop) Close()                                  {}

// producer is the subset of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Kafka publishes events to a single topic keyed by event id, so the
// transitions of one event stay ordered within a partition.
type Kafka struct {
	client producer
	topic  string
}

// NewKafka connects to brokers and verifies they answer.
func NewKafka(ctx context.Context, brokers []string, topic, clientID string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.RecordDeliveryTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}
	return &Kafka{client: client, topic: topic}, nil
}

// Publish writes events and waits for the brokers to acknowledge them.
func (k *Kafka) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, ev := range events {
		rec, err := k.record(ev)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := k.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", k.topic, err)
	}
	return nil
}

func (k *Kafka) record(ev Event) (*kgo.Record, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	return &kgo.Record{
		Topic: k.topic,
		Key:   []byte(ev.EventID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "content_type", Value: []byte("application/json")},
		},
	}, nil
}

// Close flushes and closes the client.
func (k *Kafka) Close() { k.client.Close() }
