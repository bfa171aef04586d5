package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/digicoders-git/ksmedical-backend/internal/lock"
	"github.com/digicoders-git/ksmedical-backend/internal/obs"
)

// Service errors surfaced to handlers.
var (
	ErrNotFound            = errors.New("withdrawal: not found")
	ErrBelowMinimum        = errors.New("withdrawal: amount below minimum")
	ErrInsufficientBalance = errors.New("withdrawal: insufficient available balance")
	ErrInvalidTransition   = errors.New("withdrawal: invalid status transition")
	ErrReviewInProgress    = errors.New("withdrawal: review already in progress")
)

// Store captures the persistence methods required by the withdrawal service.
// HoldFunds must decrement the available balance and increment the pending
// hold atomically, failing when the balance cannot cover the amount.
type Store interface {
	NextReferenceID(ctx context.Context) (string, error)
	InsertWithdrawal(ctx context.Context, w *Withdrawal) error
	FindWithdrawalByID(ctx context.Context, id string) (*Withdrawal, error)
	ListWithdrawalsByUser(ctx context.Context, userID string, limit, offset int) ([]Withdrawal, int64, error)
	ListWithdrawals(ctx context.Context, status string, limit, offset int) ([]Withdrawal, int64, error)
	UpdateWithdrawalStatus(ctx context.Context, id, from, to, remarks string, processedAt *time.Time) (*Withdrawal, error)
	HoldFunds(ctx context.Context, userID string, amount int64) error
	ReleaseFunds(ctx context.Context, userID string, amount int64) error
	SettleFunds(ctx context.Context, userID string, amount int64) error
}

// Publisher emits domain events after state changes commit.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Locker guards a single review attempt. Callbacks run only while the key is
// held; a held key fails fast with lock.ErrNotAcquired.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service implements payout requests against referral earnings.
type Service struct {
	Store     Store
	Lock      Locker
	Events    Publisher
	Log       zerolog.Logger
	MinAmount int64
	Fee       int64
	LockTTL   time.Duration
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Request places a withdrawal for the user's referral balance. The funds move
// from available to a pending hold immediately so a second request cannot
// spend the same balance.
func (s *Service) Request(ctx context.Context, userID string, amount int64, details PaymentDetails) (*Withdrawal, error) {
	if amount < s.MinAmount {
		return nil, fmt.Errorf("%w: minimum is %d", ErrBelowMinimum, s.MinAmount)
	}
	if err := s.Store.HoldFunds(ctx, userID, amount); err != nil {
		return nil, err
	}

	ref, err := s.Store.NextReferenceID(ctx)
	if err != nil {
		s.rollbackHold(ctx, userID, amount)
		return nil, err
	}
	now := s.now()
	w := &Withdrawal{
		UserID:         userID,
		ReferenceID:    ref,
		Amount:         amount,
		Fee:            s.Fee,
		NetAmount:      amount - s.Fee,
		Status:         StatusPending,
		PaymentDetails: details,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Store.InsertWithdrawal(ctx, w); err != nil {
		s.rollbackHold(ctx, userID, amount)
		return nil, err
	}
	if obs.WithdrawalTotal != nil {
		obs.WithdrawalTotal.WithLabelValues("requested").Inc()
	}

	if s.Events != nil {
		payload := map[string]any{
			"withdrawalId": w.ID.Hex(),
			"referenceId":  w.ReferenceID,
			"userId":       w.UserID,
			"amount":       w.Amount,
		}
		if err := s.Events.Publish(ctx, "withdrawal.requested", payload); err != nil {
			s.Log.Warn().Err(err).Str("reference_id", w.ReferenceID).Msg("publish withdrawal.requested failed")
		}
	}
	return w, nil
}

func (s *Service) rollbackHold(ctx context.Context, userID string, amount int64) {
	if err := s.Store.ReleaseFunds(ctx, userID, amount); err != nil {
		s.Log.Error().Err(err).Str("user_id", userID).Int64("amount", amount).
			Msg("failed to release withdrawal hold")
	}
}

// Approve moves a pending withdrawal to approved.
func (s *Service) Approve(ctx context.Context, id, remarks string) (*Withdrawal, error) {
	return s.review(ctx, id, func(ctx context.Context) (*Withdrawal, error) {
		w, err := s.transition(ctx, id, StatusPending, StatusApproved, remarks, false)
		if err != nil {
			return nil, err
		}
		if obs.WithdrawalTotal != nil {
			obs.WithdrawalTotal.WithLabelValues("approved").Inc()
		}
		return w, nil
	})
}

// Complete settles an approved withdrawal: the pending hold is consumed.
func (s *Service) Complete(ctx context.Context, id, remarks string) (*Withdrawal, error) {
	return s.review(ctx, id, func(ctx context.Context) (*Withdrawal, error) {
		w, err := s.transition(ctx, id, StatusApproved, StatusCompleted, remarks, true)
		if err != nil {
			return nil, err
		}
		if err := s.Store.SettleFunds(ctx, w.UserID, w.Amount); err != nil {
			return nil, fmt.Errorf("settle funds for %s: %w", w.ReferenceID, err)
		}
		if obs.WithdrawalTotal != nil {
			obs.WithdrawalTotal.WithLabelValues("completed").Inc()
		}
		return w, nil
	})
}

// Reject refuses a pending withdrawal and returns the held funds.
func (s *Service) Reject(ctx context.Context, id, remarks string) (*Withdrawal, error) {
	return s.review(ctx, id, func(ctx context.Context) (*Withdrawal, error) {
		w, err := s.transition(ctx, id, StatusPending, StatusRejected, remarks, true)
		if err != nil {
			return nil, err
		}
		if err := s.Store.ReleaseFunds(ctx, w.UserID, w.Amount); err != nil {
			return nil, fmt.Errorf("return funds for %s: %w", w.ReferenceID, err)
		}
		if obs.WithdrawalTotal != nil {
			obs.WithdrawalTotal.WithLabelValues("rejected").Inc()
		}
		return w, nil
	})
}

// review serializes admin actions per withdrawal. While one reviewer holds
// the lock, a second action on the same document is refused outright rather
// than queued, so the loser sees the already-updated status on reload.
func (s *Service) review(ctx context.Context, id string, fn func(context.Context) (*Withdrawal, error)) (*Withdrawal, error) {
	if s.Lock == nil {
		return fn(ctx)
	}
	var w *Withdrawal
	err := s.Lock.TryLock(ctx, "withdrawal:review:"+id, s.LockTTL, func(ctx context.Context) error {
		var err error
		w, err = fn(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrReviewInProgress
		}
		return nil, err
	}
	return w, nil
}

func (s *Service) transition(ctx context.Context, id, from, to, remarks string, processed bool) (*Withdrawal, error) {
	var processedAt *time.Time
	if processed {
		now := s.now()
		processedAt = &now
	}
	w, err := s.Store.UpdateWithdrawalStatus(ctx, id, from, to, remarks, processedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns a withdrawal, limited to the owner unless admin.
func (s *Service) Get(ctx context.Context, id, userID string, admin bool) (*Withdrawal, error) {
	w, err := s.Store.FindWithdrawalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && w.UserID != userID {
		return nil, ErrNotFound
	}
	return w, nil
}

// ListForUser pages through the caller's withdrawals.
func (s *Service) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Withdrawal, int64, error) {
	return s.Store.ListWithdrawalsByUser(ctx, userID, limit, offset)
}

// ListAll pages through every withdrawal, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, status string, limit, offset int) ([]Withdrawal, int64, error) {
	return s.Store.ListWithdrawals(ctx, status, limit, offset)
}
