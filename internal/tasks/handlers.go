package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/digicoders-git/ksmedical-backend/internal/events"
)

// MonthlyResetter zeroes every referral account's monthly earnings counter.
type MonthlyResetter interface {
	ResetMonthlyEarnings(ctx context.Context) (int64, error)
}

// Handlers processes background tasks on the worker.
type Handlers struct {
	Referral  MonthlyResetter
	Notifiers []events.Notifier
	Log       zerolog.Logger
}

// Register attaches all task handlers to the mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEventDispatch, h.HandleEventDispatch)
	mux.HandleFunc(TypeMonthlyReset, h.HandleMonthlyReset)
}

// HandleEventDispatch fans a persisted domain event out to the configured
// notifiers. A notifier error fails the task so asynq retries it.
func (h *Handlers) HandleEventDispatch(ctx context.Context, t *asynq.Task) error {
	var ev events.Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("decode event: %v: %w", err, asynq.SkipRetry)
	}
	for _, n := range h.Notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			return fmt.Errorf("notify %s: %w", ev.Topic, err)
		}
	}
	h.Log.Debug().Str("topic", ev.Topic).Str("event_id", ev.ID.Hex()).Msg("event dispatched")
	return nil
}

// HandleMonthlyReset zeroes monthly earnings across all referral accounts.
// Scheduled for the first of each month.
func (h *Handlers) HandleMonthlyReset(ctx context.Context, _ *asynq.Task) error {
	n, err := h.Referral.ResetMonthlyEarnings(ctx)
	if err != nil {
		return fmt.Errorf("reset monthly earnings: %w", err)
	}
	h.Log.Info().Int64("accounts", n).Msg("monthly earnings reset")
	return nil
}
