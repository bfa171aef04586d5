package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is the persisted domain event envelope.
type Event struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Topic      string             `bson:"topic" json:"topic"`
	Payload    json.RawMessage    `bson:"payload" json:"payload"`
	OccurredAt time.Time          `bson:"occurredAt" json:"occurredAt"`
}

// EventStore defines the persistence operation required by the bus.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, ev *Event) error
}

// Dispatcher hands persisted events to the background worker for fan-out.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Notifier reacts to emitted events in-process.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Bus persists domain events and fans them out to downstream handlers. A
// dispatch or notifier failure never rolls back the persisted event.
type Bus struct {
	Store      EventStore
	Dispatcher Dispatcher
	Notifiers  []Notifier
	Now        func() time.Time
}

// Publish records the event and dispatches it to all configured handlers.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	if b == nil || b.Store == nil {
		return errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("events: topic is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("events: encode payload: %w", err)
	}
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	ev := Event{Topic: topic, Payload: encoded, OccurredAt: now}
	if err := b.Store.InsertDomainEvent(ctx, &ev); err != nil {
		return fmt.Errorf("events: persist event: %w", err)
	}

	var joined error
	if b.Dispatcher != nil {
		if dispErr := b.Dispatcher.Dispatch(ctx, ev); dispErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: dispatch: %w", dispErr))
		}
	}
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return joined
}

func encodePayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return json.RawMessage(append([]byte(nil), v...)), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}
