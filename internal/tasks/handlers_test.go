package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digicoders-git/ksmedical-backend/internal/events"
)

type stubResetter struct {
	count int64
	err   error
	calls int
}

func (s *stubResetter) ResetMonthlyEarnings(_ context.Context) (int64, error) {
	s.calls++
	return s.count, s.err
}

type stubNotifier struct {
	seen []events.Event
	err  error
}

func (s *stubNotifier) Notify(_ context.Context, ev events.Event) error {
	s.seen = append(s.seen, ev)
	return s.err
}

func TestHandleMonthlyReset(t *testing.T) {
	r := &stubResetter{count: 42}
	h := &Handlers{Referral: r, Log: zerolog.Nop()}

	err := h.HandleMonthlyReset(context.Background(), NewMonthlyResetTask())
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
}

func TestHandleMonthlyResetPropagatesError(t *testing.T) {
	r := &stubResetter{err: errors.New("down")}
	h := &Handlers{Referral: r, Log: zerolog.Nop()}

	err := h.HandleMonthlyReset(context.Background(), NewMonthlyResetTask())
	assert.Error(t, err)
}

func TestHandleEventDispatchNotifies(t *testing.T) {
	n := &stubNotifier{}
	h := &Handlers{Notifiers: []events.Notifier{n}, Log: zerolog.Nop()}

	task, err := NewEventDispatchTask(events.Event{Topic: events.TopicOrderCreated})
	require.NoError(t, err)

	require.NoError(t, h.HandleEventDispatch(context.Background(), task))
	require.Len(t, n.seen, 1)
	assert.Equal(t, events.TopicOrderCreated, n.seen[0].Topic)
}

func TestHandleEventDispatchBadPayloadSkipsRetry(t *testing.T) {
	h := &Handlers{Log: zerolog.Nop()}
	task := asynq.NewTask(TypeEventDispatch, []byte("{broken"))

	err := h.HandleEventDispatch(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
