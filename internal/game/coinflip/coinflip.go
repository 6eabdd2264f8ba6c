// Package coinflip implements a called coin toss paying even money.
package coinflip

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

// Sides.
const (
	Heads = "heads"
	Tails = "tails"
)

// Result tags.
const (
	TagWin       = "win"
	TagLose      = "lose"
	TagExpired   = "expired"
	TagCancelled = "cancelled"
)

// Payload holds the player's call.
type Payload struct {
	Call string
}

// Kind implements session.Payload.
func (p *Payload) Kind() session.Kind { return session.KindCoinflip }

// Config holds configuration for the coinflip rule.
type Config struct {
	MaxBet  int64
	Timeout time.Duration
}

// Rule implements game.Rule for coinflip.
type Rule struct {
	maxBet  int64
	timeout time.Duration
}

// New creates a coinflip rule with the given configuration.
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
func (r *Rule) Kind() session.Kind { return session.KindCoinflip }

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

// Lifetime returns how long an unflipped call stays open.
func (r *Rule) Lifetime(map[string]any) time.Duration { return r.timeout }

// Start records the call from params["call"], "heads" or "tails".
func (r *Rule) Start(account string, wager int64, params map[string]any) (session.Payload, *game.Outcome, error) {
	call, _ := params["call"].(string)
	if call != Heads && call != Tails {
		return nil, nil, fmt.Errorf("%w: call heads or tails", game.ErrInvalidParams)
	}
	return &Payload{Call: call}, nil, nil
}

// Act handles "flip". Tests may pin the result via Data["side"].
func (r *Rule) Act(s *session.Session, action game.Action) (*game.Step, error) {
	p, ok := s.Payload.(*Payload)
	if !ok {
		return nil, game.ErrActionMismatch
	}
	if action.Actor != s.Account {
		return nil, game.ErrIneligible
	}
	if action.Name != "flip" {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownAction, action.Name)
	}

	side := Heads
	if rand.Intn(2) == 1 {
		side = Tails
	}
	if pinned, ok := action.Data["side"].(string); ok {
		if pinned != Heads && pinned != Tails {
			return nil, fmt.Errorf("%w: bad side %q", game.ErrInvalidParams, pinned)
		}
		side = pinned
	}

	outcome := game.Outcome{
		Tag:    TagLose,
		Detail: map[string]any{"call": p.Call, "side": side},
	}
	if side == p.Call {
		outcome.Tag = TagWin
		outcome.Payout = s.Wager * 2
	}
	return &game.Step{Resolve: true, Outcome: outcome}, nil
}

// Expire refunds a call that was never flipped.
func (r *Rule) Expire(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagExpired, Payout: s.Wager}
}

// Cancel refunds the stake.
func (r *Rule) Cancel(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagCancelled, Payout: s.Wager}
}
