// Package roulette implements single-spin roulette: the player picks a
// straight number, a color, or a parity, and spins a European wheel.
package roulette

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"arcade-engine/internal/game"
	"arcade-engine/internal/session"
)

const (
	DefaultMaxBet  = 10000
	DefaultTimeout = 2 * time.Minute

	wheelSize = 37 // 0..36
)

// Result tags.
const (
	TagWin       = "win"
	TagLose      = "lose"
	TagExpired   = "expired"
	TagCancelled = "cancelled"
)

// Gross payout multipliers.
const (
	straightPays = 36
	outsidePays  = 2
)

type betKind int

const (
	betStraight betKind = iota
	betColor
	betParity
)

// red holds the red numbers of a European wheel. Zero is neither red nor
// black and loses every outside bet.
var red = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// Color returns "red", "black" or "green" for a pocket.
func Color(pocket int) string {
	switch {
	case pocket == 0:
		return "green"
	case red[pocket]:
		return "red"
	default:
		return "black"
	}
}

// Payload holds one placed bet waiting for its spin.
type Payload struct {
	Target string
	Number int
	kind   betKind
}

// Kind implements session.Payload.
func (p *Payload) Kind() session.Kind { return session.KindRoulette }

// wins reports whether the bet covers the pocket.
func (p *Payload) wins(pocket int) bool {
	switch p.kind {
	case betStraight:
		return pocket == p.Number
	case betColor:
		return Color(pocket) == p.Target
	case betParity:
		if pocket == 0 {
			return false
		}
		if p.Target == "even" {
			return pocket%2 == 0
		}
		return pocket%2 == 1
	}
	return false
}

func (p *Payload) pays() int64 {
	if p.kind == betStraight {
		return straightPays
	}
	return outsidePays
}

// Config holds configuration for the roulette rule.
type Config struct {
	MaxBet  int64
	Timeout time.Duration
}

// Rule implements game.Rule for roulette.
type Rule struct {
	maxBet  int64
	timeout time.Duration
}

// New creates a roulette rule with the given configuration.
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
func (r *Rule) Kind() session.Kind { return session.KindRoulette }

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

// Lifetime returns how long an unplayed bet stays open.
func (r *Rule) Lifetime(map[string]any) time.Duration { return r.timeout }

// Start places the bet named by params["bet"]: a number 0..36, "red",
// "black", "even" or "odd".
func (r *Rule) Start(account string, wager int64, params map[string]any) (session.Payload, *game.Outcome, error) {
	target, _ := params["bet"].(string)
	payload, err := parseBet(target)
	if err != nil {
		return nil, nil, err
	}
	return payload, nil, nil
}

func parseBet(target string) (*Payload, error) {
	switch target {
	case "red", "black":
		return &Payload{Target: target, kind: betColor}, nil
	case "even", "odd":
		return &Payload{Target: target, kind: betParity}, nil
	case "":
		return nil, fmt.Errorf("%w: missing bet", game.ErrInvalidParams)
	}
	n, err := strconv.Atoi(target)
	if err != nil || n < 0 || n >= wheelSize {
		return nil, fmt.Errorf("%w: bad bet %q", game.ErrInvalidParams, target)
	}
	return &Payload{Target: target, Number: n, kind: betStraight}, nil
}

// Act handles "spin". Tests may pin the pocket via Data["pocket"].
func (r *Rule) Act(s *session.Session, action game.Action) (*game.Step, error) {
	p, ok := s.Payload.(*Payload)
	if !ok {
		return nil, game.ErrActionMismatch
	}
	if action.Actor != s.Account {
		return nil, game.ErrIneligible
	}
	if action.Name != "spin" {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownAction, action.Name)
	}

	pocket := rand.Intn(wheelSize)
	if pinned, ok := action.Data["pocket"].(int); ok {
		if pinned < 0 || pinned >= wheelSize {
			return nil, fmt.Errorf("%w: pocket out of range", game.ErrInvalidParams)
		}
		pocket = pinned
	}

	outcome := game.Outcome{
		Tag: TagLose,
		Detail: map[string]any{
			"pocket": pocket,
			"color":  Color(pocket),
			"bet":    p.Target,
		},
	}
	if p.wins(pocket) {
		outcome.Tag = TagWin
		outcome.Payout = s.Wager * p.pays()
	}
	return &game.Step{Resolve: true, Outcome: outcome}, nil
}

// Expire refunds a bet that was never spun.
func (r *Rule) Expire(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagExpired, Payout: s.Wager}
}

// Cancel refunds the stake.
func (r *Rule) Cancel(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagCancelled, Payout: s.Wager}
}
