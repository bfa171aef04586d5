package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/digicoders-git/ksmedical-backend/internal/events"
)

// Task type names routed through asynq.
const (
	TypeEventDispatch = "event:dispatch"
	TypeMonthlyReset  = "referral:reset_monthly"
)

// NewEventDispatchTask wraps a persisted domain event for background fan-out.
func NewEventDispatchTask(ev events.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("tasks: encode event: %w", err)
	}
	return asynq.NewTask(TypeEventDispatch, payload, asynq.MaxRetry(5)), nil
}

// NewMonthlyResetTask builds the scheduled monthly earnings reset task.
func NewMonthlyResetTask() *asynq.Task {
	return asynq.NewTask(TypeMonthlyReset, nil, asynq.MaxRetry(3))
}

// Dispatcher enqueues persisted events onto the worker queue. It satisfies
// the event bus Dispatcher interface.
type Dispatcher struct {
	Client *asynq.Client
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev events.Event) error {
	task, err := NewEventDispatchTask(ev)
	if err != nil {
		return err
	}
	if _, err := d.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("tasks: enqueue %s: %w", ev.Topic, err)
	}
	return nil
}
