package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	events []Event
	err    error
}

func (m *memStore) InsertDomainEvent(_ context.Context, ev *Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, *ev)
	return nil
}

type recordingDispatcher struct {
	seen []Event
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev Event) error {
	d.seen = append(d.seen, ev)
	return d.err
}

func TestPublishPersistsAndDispatches(t *testing.T) {
	st := &memStore{}
	disp := &recordingDispatcher{}
	bus := &Bus{
		Store:      st,
		Dispatcher: disp,
		Now:        func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	}

	err := bus.Publish(context.Background(), TopicOrderCreated, map[string]any{"orderId": "abc"})
	require.NoError(t, err)
	require.Len(t, st.events, 1)
	assert.Equal(t, TopicOrderCreated, st.events[0].Topic)
	require.Len(t, disp.seen, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(disp.seen[0].Payload, &payload))
	assert.Equal(t, "abc", payload["orderId"])
}

func TestPublishRequiresTopic(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	assert.Error(t, bus.Publish(context.Background(), "  ", nil))
}

func TestPublishStoreFailureSkipsDispatch(t *testing.T) {
	disp := &recordingDispatcher{}
	bus := &Bus{Store: &memStore{err: errors.New("down")}, Dispatcher: disp}

	err := bus.Publish(context.Background(), TopicReferralRegistered, nil)
	assert.Error(t, err)
	assert.Empty(t, disp.seen)
}

func TestPublishDispatchFailureStillPersists(t *testing.T) {
	st := &memStore{}
	disp := &recordingDispatcher{err: errors.New("queue down")}
	bus := &Bus{Store: st, Dispatcher: disp}

	err := bus.Publish(context.Background(), TopicWithdrawalRequested, nil)
	assert.Error(t, err)
	assert.Len(t, st.events, 1)
}

func TestPublishRejectsInvalidRawPayload(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	err := bus.Publish(context.Background(), TopicOrderCreated, json.RawMessage("{broken"))
	assert.Error(t, err)
}
