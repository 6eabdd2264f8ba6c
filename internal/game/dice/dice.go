// Package dice implements a two-die roll paid off a fixed table: sevens
// push, eights and up pay even money, boxcars pay double.
package dice

import (
	"fmt"
	"math/rand"
	"time"

	"arcade-engine/internal/game"
	"arcade-engine/internal/session"
)

const (
	DefaultMaxBet  = 10000
	DefaultTimeout = 2 * time.Minute
)

// Result tags.
const (
	TagWin       = "win"
	TagLose      = "lose"
	TagPush      = "push"
	TagExpired   = "expired"
	TagCancelled = "cancelled"
)

// Payout returns the gross payout for a two-die total.
func Payout(total int, wager int64) (string, int64) {
	switch {
	case total == 12:
		return TagWin, wager * 3
	case total >= 8:
		return TagWin, wager * 2
	case total == 7:
		return TagPush, wager
	default:
		return TagLose, 0
	}
}

// Payload marks a staked roll waiting to be thrown.
type Payload struct{}

// Kind implements session.Payload.
func (p *Payload) Kind() session.Kind { return session.KindDice }

// Config holds configuration for the dice rule.
type Config struct {
	MaxBet  int64
	Timeout time.Duration
}

// Rule implements game.Rule for dice.
type Rule struct {
	maxBet  int64
	timeout time.Duration
}

// New creates a dice rule with the given configuration.
func New(cfg *Config) *Rule {
	maxBet := int64(DefaultMaxBet)
	timeout := DefaultTimeout
	if cfg != nil {
		if cfg.MaxBet > 0 {
			maxBet = cfg.MaxBet
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	}
	return &Rule{maxBet: maxBet, timeout: timeout}
}

// Kind returns the session kind this rule serves.
func (r *Rule) Kind() session.Kind { return session.KindDice }

// ValidateWager checks the stake against the table limit.
func (r *Rule) ValidateWager(wager int64) error {
	if wager <= 0 {
		return game.ErrInvalidWager
	}
	if wager > r.maxBet {
		return fmt.Errorf("%w: max bet is %d", game.ErrInvalidWager, r.maxBet)
	}
	return nil
}

// Lifetime returns how long an unthrown roll stays open.
func (r *Rule) Lifetime(map[string]any) time.Duration { return r.timeout }

// Start stakes the roll.
func (r *Rule) Start(account string, wager int64, params map[string]any) (session.Payload, *game.Outcome, error) {
	return &Payload{}, nil, nil
}

// Act handles "roll". Tests may pin the dice via Data["dice"].
func (r *Rule) Act(s *session.Session, action game.Action) (*game.Step, error) {
	if _, ok := s.Payload.(*Payload); !ok {
		return nil, game.ErrActionMismatch
	}
	if action.Actor != s.Account {
		return nil, game.ErrIneligible
	}
	if action.Name != "roll" {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownAction, action.Name)
	}

	d1, d2 := rand.Intn(6)+1, rand.Intn(6)+1
	if pinned, ok := action.Data["dice"].([]int); ok {
		if len(pinned) != 2 || pinned[0] < 1 || pinned[0] > 6 || pinned[1] < 1 || pinned[1] > 6 {
			return nil, fmt.Errorf("%w: bad dice", game.ErrInvalidParams)
		}
		d1, d2 = pinned[0], pinned[1]
	}

	tag, payout := Payout(d1+d2, s.Wager)
	return &game.Step{
		Resolve: true,
		Outcome: game.Outcome{
			Tag:    tag,
			Payout: payout,
			Detail: map[string]any{"dice": []int{d1, d2}, "total": d1 + d2},
		},
	}, nil
}

// Expire refunds a roll that was never thrown.
func (r *Rule) Expire(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagExpired, Payout: s.Wager}
}

// Cancel refunds the stake.
func (r *Rule) Cancel(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagCancelled, Payout: s.Wager}
}
