// Package slots implements a three-reel slot machine with weighted symbols.
// Three of a kind pays the symbol's multiplier, any pair pays half the stake
// on top.
package slots

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

	reelCount = 3
)

// Result tags.
const (
	TagJackpot   = "jackpot"
	TagPair      = "pair"
	TagLose      = "lose"
	TagExpired   = "expired"
	TagCancelled = "cancelled"
)

// Symbol is one reel face with its draw weight and triple multiplier.
type Symbol struct {
	Face       string
	Weight     int
	Multiplier int64
}

// symbols is ordered rarest-last. Weights sum to 100.
var symbols = []Symbol{
	{"🍒", 35, 2},
	{"🍋", 30, 3},
	{"🍊", 20, 5},
	{"🍇", 10, 10},
	{"💎", 4, 25},
	{"7️⃣", 1, 100},
}

var totalWeight = func() int {
	sum := 0
	for _, s := range symbols {
		sum += s.Weight
	}
	return sum
}()

// Spin draws one weighted symbol per reel.
func Spin() []string {
	reels := make([]string, reelCount)
	for i := range reels {
		reels[i] = drawSymbol()
	}
	return reels
}

func drawSymbol() string {
	roll := rand.Intn(totalWeight)
	for _, s := range symbols {
		roll -= s.Weight
		if roll < 0 {
			return s.Face
		}
	}
	return symbols[0].Face
}

// Multiplier returns the triple multiplier for a symbol face, or 0 if the
// face is unknown.
func Multiplier(face string) int64 {
	for _, s := range symbols {
		if s.Face == face {
			return s.Multiplier
		}
	}
	return 0
}

// Settle pays a three-reel line. Three of a kind pays the symbol
// multiplier, any two matching reels pay one and a half times the stake.
func Settle(reels []string, wager int64) (string, int64) {
	if reels[0] == reels[1] && reels[1] == reels[2] {
		return TagJackpot, wager * Multiplier(reels[0])
	}
	if reels[0] == reels[1] || reels[1] == reels[2] || reels[0] == reels[2] {
		return TagPair, wager * 3 / 2
	}
	return TagLose, 0
}

// Payload marks a staked spin.
type Payload struct{}

// Kind implements session.Payload.
func (p *Payload) Kind() session.Kind { return session.KindSlots }

// Config holds configuration for the slots rule.
type Config struct {
	MaxBet  int64
	Timeout time.Duration
}

// Rule implements game.Rule for slots.
type Rule struct {
	maxBet  int64
	timeout time.Duration
}

// New creates a slots rule with the given configuration.
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
func (r *Rule) Kind() session.Kind { return session.KindSlots }

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

// Lifetime returns how long an unplayed spin stays open.
func (r *Rule) Lifetime(map[string]any) time.Duration { return r.timeout }

// Start stakes the spin.
func (r *Rule) Start(account string, wager int64, params map[string]any) (session.Payload, *game.Outcome, error) {
	return &Payload{}, nil, nil
}

// Act handles "spin". Tests may pin the reels via Data["reels"].
func (r *Rule) Act(s *session.Session, action game.Action) (*game.Step, error) {
	if _, ok := s.Payload.(*Payload); !ok {
		return nil, game.ErrActionMismatch
	}
	if action.Actor != s.Account {
		return nil, game.ErrIneligible
	}
	if action.Name != "spin" {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownAction, action.Name)
	}

	reels := Spin()
	if pinned, ok := action.Data["reels"].([]string); ok {
		if len(pinned) != reelCount {
			return nil, fmt.Errorf("%w: want %d reels", game.ErrInvalidParams, reelCount)
		}
		reels = pinned
	}

	tag, payout := Settle(reels, s.Wager)
	return &game.Step{
		Resolve: true,
		Outcome: game.Outcome{
			Tag:    tag,
			Payout: payout,
			Detail: map[string]any{"reels": reels},
		},
	}, nil
}

// Expire refunds a spin that was never played.
func (r *Rule) Expire(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagExpired, Payout: s.Wager}
}

// Cancel refunds the stake.
func (r *Rule) Cancel(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagCancelled, Payout: s.Wager}
}
