// Package ledger is the single authority over balances and XP. Every
// mutation for an account runs under that account's lock, so concurrent
// wagers, payouts and transfers serialize per account without a global
// lock.
package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"arcade-engine/internal/model"
	"arcade-engine/internal/pkg/lock"
)

const (
	// xpPerLevel scales the level curve: level = floor(sqrt(xp / 50)).
	xpPerLevel = 50

	DefaultDailyReward   = 100
	DefaultDailyCooldown = 24 * time.Hour
)

// Level converts accumulated XP to a level.
func Level(xp int64) int {
	if xp <= 0 {
		return 0
	}
	return int(math.Sqrt(float64(xp) / xpPerLevel))
}

// Store persists accounts.
type Store interface {
	Get(ctx context.Context, id string) (*model.Account, error)
	GetOrCreate(ctx context.Context, id string) (*model.Account, bool, error)
	Credit(ctx context.Context, id string, amount int64) (*model.Account, error)
	Debit(ctx context.Context, id string, amount int64) (bool, error)
	SetBalance(ctx context.Context, id string, balance int64) (*model.Account, error)
	AddXP(ctx context.Context, id string, xp int64) (*model.Account, error)
	SetDailyClaim(ctx context.Context, id string, claimedAt int64) error
	Top(ctx context.Context, limit int) ([]*model.Account, error)
}

// TxStore records the audit trail.
type TxStore interface {
	Record(ctx context.Context, accountID string, amount int64, txType string, sessionID *string) (*model.Transaction, error)
}

// Options configures a Service.
type Options struct {
	DailyReward   int64
	DailyCooldown time.Duration
	Clock         quartz.Clock
	Logger        zerolog.Logger
}

// Service serializes ledger mutations per account.
type Service struct {
	accounts Store
	txs      TxStore
	locks    *lock.KeyLock
	clock    quartz.Clock
	log      zerolog.Logger

	dailyReward   int64
	dailyCooldown time.Duration
}

// NewService creates a ledger service.
func NewService(accounts Store, txs TxStore, opts Options) *Service {
	s := &Service{
		accounts:      accounts,
		txs:           txs,
		locks:         lock.NewKeyLock(),
		clock:         opts.Clock,
		log:           opts.Logger,
		dailyReward:   opts.DailyReward,
		dailyCooldown: opts.DailyCooldown,
	}
	if s.clock == nil {
		s.clock = quartz.NewReal()
	}
	if s.dailyReward <= 0 {
		s.dailyReward = DefaultDailyReward
	}
	if s.dailyCooldown <= 0 {
		s.dailyCooldown = DefaultDailyCooldown
	}
	return s
}

// Ensure creates the account if it does not exist and returns it.
func (s *Service) Ensure(ctx context.Context, id string) (*model.Account, error) {
	var account *model.Account
	err := s.locks.WithLock(id, func() error {
		var err error
		account, _, err = s.accounts.GetOrCreate(ctx, id)
		return err
	})
	return account, err
}

// Balance returns the account, creating it at zero if needed.
func (s *Service) Balance(ctx context.Context, id string) (*model.Account, error) {
	return s.Ensure(ctx, id)
}

// Credit adds a positive amount and records it. LifetimeEarned only ever
// grows.
func (s *Service) Credit(ctx context.Context, id string, amount int64, txType string, sessionID *string) (*model.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var account *model.Account
	err := s.locks.WithLock(id, func() error {
		if _, _, err := s.accounts.GetOrCreate(ctx, id); err != nil {
			return err
		}
		var err error
		account, err = s.accounts.Credit(ctx, id, amount)
		if err != nil {
			return err
		}
		return s.record(ctx, id, amount, txType, sessionID)
	})
	return account, err
}

// Debit removes a positive amount, failing with ErrInsufficientFunds when
// the balance cannot cover it. The balance never goes negative.
func (s *Service) Debit(ctx context.Context, id string, amount int64, txType string, sessionID *string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.locks.WithLock(id, func() error {
		if _, _, err := s.accounts.GetOrCreate(ctx, id); err != nil {
			return err
		}
		ok, err := s.accounts.Debit(ctx, id, amount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientFunds
		}
		return s.record(ctx, id, -amount, txType, sessionID)
	})
}

// Award pays credits and XP in one call, as one earned reward.
func (s *Service) Award(ctx context.Context, id string, credits, xp int64, txType string, sessionID *string) (*model.Account, error) {
	if credits < 0 || xp < 0 || (credits == 0 && xp == 0) {
		return nil, ErrInvalidAmount
	}
	var account *model.Account
	err := s.locks.WithLock(id, func() error {
		var err error
		account, _, err = s.accounts.GetOrCreate(ctx, id)
		if err != nil {
			return err
		}
		if credits > 0 {
			if account, err = s.accounts.Credit(ctx, id, credits); err != nil {
				return err
			}
			if err = s.record(ctx, id, credits, txType, sessionID); err != nil {
				return err
			}
		}
		if xp > 0 {
			if account, err = s.accounts.AddXP(ctx, id, xp); err != nil {
				return err
			}
		}
		return nil
	})
	return account, err
}

// AwardXP adds XP without touching the balance.
func (s *Service) AwardXP(ctx context.Context, id string, xp int64) (*model.Account, error) {
	if xp <= 0 {
		return nil, ErrInvalidAmount
	}
	var account *model.Account
	err := s.locks.WithLock(id, func() error {
		if _, _, err := s.accounts.GetOrCreate(ctx, id); err != nil {
			return err
		}
		var err error
		account, err = s.accounts.AddXP(ctx, id, xp)
		return err
	})
	return account, err
}

// ClaimDaily pays the daily bonus once per cooldown window.
func (s *Service) ClaimDaily(ctx context.Context, id string) (*model.Account, error) {
	var account *model.Account
	err := s.locks.WithLock(id, func() error {
		acct, _, err := s.accounts.GetOrCreate(ctx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if acct.LastDailyClaim > 0 {
			last := time.Unix(acct.LastDailyClaim, 0)
			if now.Sub(last) < s.dailyCooldown {
				return ErrDailyClaimed
			}
		}
		if account, err = s.accounts.Credit(ctx, id, s.dailyReward); err != nil {
			return err
		}
		if err = s.accounts.SetDailyClaim(ctx, id, now.Unix()); err != nil {
			return err
		}
		account.LastDailyClaim = now.Unix()
		return s.record(ctx, id, s.dailyReward, model.TxTypeDaily, nil)
	})
	return account, err
}

// Transfer moves credits between two accounts. Both locks are taken in a
// fixed order so two opposing transfers cannot deadlock.
func (s *Service) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSelfTransfer
	}
	return s.locks.WithPairLock(from, to, func() error {
		if _, _, err := s.accounts.GetOrCreate(ctx, from); err != nil {
			return err
		}
		if _, _, err := s.accounts.GetOrCreate(ctx, to); err != nil {
			return err
		}
		ok, err := s.accounts.Debit(ctx, from, amount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientFunds
		}
		if _, err = s.accounts.Credit(ctx, to, amount); err != nil {
			// put the debit back rather than leave credits destroyed
			if _, rerr := s.accounts.Credit(ctx, from, amount); rerr != nil {
				s.log.Error().Err(rerr).Str("account", from).Msg("transfer rollback failed")
			}
			return err
		}
		if err = s.record(ctx, from, -amount, model.TxTypeTransferOut, nil); err != nil {
			return err
		}
		return s.record(ctx, to, amount, model.TxTypeTransferIn, nil)
	})
}

// Top returns the richest accounts.
func (s *Service) Top(ctx context.Context, limit int) ([]*model.Account, error) {
	return s.accounts.Top(ctx, limit)
}

// Reset zeroes an account's balance. Admin only, enforced by the caller.
func (s *Service) Reset(ctx context.Context, id string) error {
	return s.locks.WithLock(id, func() error {
		acct, _, err := s.accounts.GetOrCreate(ctx, id)
		if err != nil {
			return err
		}
		if _, err = s.accounts.SetBalance(ctx, id, 0); err != nil {
			return err
		}
		if acct.Balance == 0 {
			return nil
		}
		return s.record(ctx, id, -acct.Balance, model.TxTypeReset, nil)
	})
}

func (s *Service) record(ctx context.Context, id string, amount int64, txType string, sessionID *string) error {
	if _, err := s.txs.Record(ctx, id, amount, txType, sessionID); err != nil {
		return fmt.Errorf("record %s transaction: %w", txType, err)
	}
	return nil
}
