package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/digicoders-git/ksmedical-backend/internal/obs"
)

// Service errors surfaced to handlers.
var (
	ErrAccountExists       = errors.New("referral: account already exists")
	ErrAccountNotFound     = errors.New("referral: account not found")
	ErrInvalidReferralCode = errors.New("referral: invalid referral code")
	ErrAlreadyCredited     = errors.New("referral: level already credited")
	ErrCodeCollision       = errors.New("referral: code collision")
)

const codeGenAttempts = 5

// Store captures the persistence methods required by the referral service.
// CreditAncestor must apply the downline push and all counter increments as
// one atomic operation on the ancestor document.
type Store interface {
	InsertAccount(ctx context.Context, a *Account) error
	FindAccountByUserID(ctx context.Context, userID string) (*Account, error)
	FindAccountByCode(ctx context.Context, code string) (*Account, error)
	InsertTransaction(ctx context.Context, tx *Transaction) error
	CreditAncestor(ctx context.Context, userID string, entry DownlineEntry, amount int64) error
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]Transaction, int64, error)
	Stats(ctx context.Context) (*NetworkStats, error)
}

// Locker serializes registration per new user so retried requests cannot race
// the cascade.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Publisher emits domain events after state changes commit.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// NetworkStats is the admin-facing aggregate over the whole network.
type NetworkStats struct {
	TotalAccounts     int64 `json:"totalAccounts"`
	TotalTransactions int64 `json:"totalTransactions"`
	TotalPaidOut      int64 `json:"totalPaidOut"`
}

// Service implements referral registration and the payout cascade.
type Service struct {
	Store      Store
	Lock       Locker
	Events     Publisher
	Log        zerolog.Logger
	CodePrefix string
	Bonuses    [MaxLevel]int64
	LockTTL    time.Duration
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RegisterResult reports the created account and how many ancestor levels
// were credited.
type RegisterResult struct {
	Account        *Account `json:"account"`
	LevelsCredited int      `json:"levelsCredited"`
}

// Register creates the referral account for userID and pays the sponsor chain.
// The cascade walks at most MaxLevel ancestors iteratively, crediting each one
// with a single atomic update. A level that was already paid for this user is
// skipped, so a retried registration never double-credits. When the account
// already exists from an attempt that failed partway, the retry resumes the
// cascade and applies only the levels still owed; ErrAccountExists is
// returned only once every reachable ancestor has been paid.
func (s *Service) Register(ctx context.Context, userID, sponsorCode string) (*RegisterResult, error) {
	if userID == "" {
		return nil, errors.New("referral: user id is required")
	}
	var result *RegisterResult
	run := func(ctx context.Context) error {
		var err error
		result, err = s.register(ctx, userID, sponsorCode)
		return err
	}
	if s.Lock != nil {
		if err := s.Lock.WithLock(ctx, "referral:register:"+userID, s.LockTTL, run); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := run(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) register(ctx context.Context, userID, sponsorCode string) (*RegisterResult, error) {
	if existing, err := s.Store.FindAccountByUserID(ctx, userID); err == nil && existing != nil {
		return s.resume(ctx, existing)
	} else if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	var sponsor *Account
	if sponsorCode != "" {
		var err error
		sponsor, err = s.Store.FindAccountByCode(ctx, sponsorCode)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return nil, ErrInvalidReferralCode
			}
			return nil, err
		}
	}

	account, err := s.createAccount(ctx, userID, sponsor)
	if err != nil {
		return nil, err
	}

	credited, err := s.cascade(ctx, account, sponsor)
	if err != nil {
		if obs.ReferralCascadeTotal != nil {
			obs.ReferralCascadeTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	return s.finish(ctx, account, credited), nil
}

// resume completes the cascade for an account left behind by a failed earlier
// attempt. When nothing is owed the registration is a plain duplicate.
func (s *Service) resume(ctx context.Context, account *Account) (*RegisterResult, error) {
	if account.ReferredBy == "" {
		return nil, ErrAccountExists
	}
	sponsor, err := s.Store.FindAccountByUserID(ctx, account.ReferredBy)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountExists
		}
		return nil, err
	}
	credited, err := s.cascade(ctx, account, sponsor)
	if err != nil {
		if obs.ReferralCascadeTotal != nil {
			obs.ReferralCascadeTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	if credited == 0 {
		return nil, ErrAccountExists
	}
	s.Log.Info().
		Str("user_id", account.UserID).
		Int("levels_credited", credited).
		Msg("resumed referral cascade for existing account")
	return s.finish(ctx, account, credited), nil
}

func (s *Service) finish(ctx context.Context, account *Account, credited int) *RegisterResult {
	if obs.ReferralCascadeTotal != nil {
		obs.ReferralCascadeTotal.WithLabelValues("ok").Inc()
	}
	if s.Events != nil {
		payload := map[string]any{
			"userId":         account.UserID,
			"referralCode":   account.ReferralCode,
			"referredBy":     account.ReferredBy,
			"levelsCredited": credited,
		}
		if err := s.Events.Publish(ctx, "referral.registered", payload); err != nil {
			s.Log.Warn().Err(err).Str("user_id", account.UserID).Msg("publish referral.registered failed")
		}
	}
	return &RegisterResult{Account: account, LevelsCredited: credited}
}

func (s *Service) createAccount(ctx context.Context, userID string, sponsor *Account) (*Account, error) {
	now := s.now()
	account := &Account{
		UserID:          userID,
		IsActive:        true,
		CommissionRates: DefaultCommissionRates,
		Downline:        []DownlineEntry{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if sponsor != nil {
		account.ReferredBy = sponsor.UserID
	}
	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		code, err := GenerateCode(s.CodePrefix)
		if err != nil {
			return nil, err
		}
		account.ReferralCode = code
		err = s.Store.InsertAccount(ctx, account)
		if err == nil {
			return account, nil
		}
		if errors.Is(err, ErrCodeCollision) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("referral: could not allocate a unique code after %d attempts", codeGenAttempts)
}

// cascade credits up to MaxLevel ancestors. The ledger insert carries a
// uniqueness guard on (relatedUser, level); a duplicate means an earlier
// attempt reached this level, so the credit is re-applied through the
// idempotent CreditAncestor, which repairs a balance the earlier attempt
// recorded but never paid and is a no-op when it did pay.
func (s *Service) cascade(ctx context.Context, account *Account, sponsor *Account) (int, error) {
	credited := 0
	ancestor := sponsor
	for level := 1; level <= MaxLevel && ancestor != nil; level++ {
		amount := s.Bonuses[level-1]
		tx := &Transaction{
			UserID:      ancestor.UserID,
			RelatedUser: account.UserID,
			Level:       level,
			Amount:      amount,
			Type:        txType(level),
			Status:      TxStatusCompleted,
			Description: txDescription(level),
			CreatedAt:   s.now(),
		}
		err := s.Store.InsertTransaction(ctx, tx)
		if err != nil && !errors.Is(err, ErrAlreadyCredited) {
			return credited, fmt.Errorf("record level %d transaction: %w", level, err)
		}
		ledgered := errors.Is(err, ErrAlreadyCredited)

		entry := DownlineEntry{UserID: account.UserID, Level: level, JoinedAt: account.CreatedAt, IsActive: true}
		switch err := s.Store.CreditAncestor(ctx, ancestor.UserID, entry, amount); {
		case err == nil:
			if ledgered {
				s.Log.Info().
					Str("ancestor", ancestor.UserID).
					Str("new_user", account.UserID).
					Int("level", level).
					Msg("repaired referral credit recorded by an earlier attempt")
			}
			if obs.ReferralBonusCredited != nil {
				obs.ReferralBonusCredited.WithLabelValues(levelLabel(level)).Inc()
			}
			credited++
		case errors.Is(err, ErrAlreadyCredited):
			s.Log.Info().
				Str("ancestor", ancestor.UserID).
				Str("new_user", account.UserID).
				Int("level", level).
				Msg("referral level already credited, skipping")
		default:
			return credited, fmt.Errorf("credit level %d ancestor %s: %w", level, ancestor.UserID, err)
		}

		if ancestor.ReferredBy == "" {
			break
		}
		next, err := s.Store.FindAccountByUserID(ctx, ancestor.ReferredBy)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				break
			}
			return credited, err
		}
		ancestor = next
	}
	return credited, nil
}

func txType(level int) string {
	if level == 1 {
		return TxTypeReferral
	}
	return TxTypeCommission
}

func txDescription(level int) string {
	if level == 1 {
		return "Level 1 Referral Bonus"
	}
	return fmt.Sprintf("Level %d Referral Commission", level)
}

func levelLabel(level int) string {
	return fmt.Sprintf("%d", level)
}

// ResolveCode validates a referral code and returns its owner's account.
func (s *Service) ResolveCode(ctx context.Context, code string) (*Account, error) {
	if code == "" {
		return nil, ErrInvalidReferralCode
	}
	account, err := s.Store.FindAccountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidReferralCode
		}
		return nil, err
	}
	return account, nil
}

// Dashboard bundles the account with its recent ledger activity.
type Dashboard struct {
	Account      *Account      `json:"account"`
	Transactions []Transaction `json:"transactions"`
}

// Dashboard returns the caller's account and latest transactions.
func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	account, err := s.Store.FindAccountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, _, err := s.Store.ListTransactions(ctx, userID, 10, 0)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Account: account, Transactions: txs}, nil
}

// Transactions pages through the caller's ledger entries.
func (s *Service) Transactions(ctx context.Context, userID string, limit, offset int) ([]Transaction, int64, error) {
	return s.Store.ListTransactions(ctx, userID, limit, offset)
}

// Account returns the referral account for userID.
func (s *Service) Account(ctx context.Context, userID string) (*Account, error) {
	return s.Store.FindAccountByUserID(ctx, userID)
}

// NetworkStats returns the admin aggregate.
func (s *Service) NetworkStats(ctx context.Context) (*NetworkStats, error) {
	return s.Store.Stats(ctx)
}
