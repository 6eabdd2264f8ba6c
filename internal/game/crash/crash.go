// Package crash implements the crash session rule: a multiplier climbs on
// every tick toward a hidden crash point, and the player must cash out
// before it detonates.
package crash

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"arcade-engine/internal/game"
	"arcade-engine/internal/session"
)

const (
	DefaultMaxBet       = 10000
	DefaultTickInterval = 500 * time.Millisecond
	DefaultTimeout      = 5 * time.Minute

	// houseEdge shaves the expected value below 1.0.
	houseEdge = 0.99

	// maxCrash caps the multiplier so a tiny roll cannot run unbounded.
	maxCrash = 1000.0

	// growth is the multiplicative step applied each tick.
	growth = 1.05
)

// Result tags.
const (
	TagCashout   = "cashout"
	TagCrashed   = "crashed"
	TagCancelled = "cancelled"
)

// CrashPoint maps a uniform roll in (0, 1] to a crash multiplier. The
// distribution pays the house edge on average and floors at 1.00, so
// roughly one round in a hundred detonates immediately.
func CrashPoint(u float64) float64 {
	if u <= 0 {
		return maxCrash
	}
	point := math.Floor(100*houseEdge/u) / 100
	if point < 1.0 {
		return 1.0
	}
	if point > maxCrash {
		return maxCrash
	}
	return point
}

// Payload tracks one climbing round.
type Payload struct {
	Multiplier float64
	CrashAt    float64
}

// Kind implements session.Payload.
func (p *Payload) Kind() session.Kind { return session.KindCrash }

// Config holds configuration for the crash rule.
type Config struct {
	MaxBet       int64
	TickInterval time.Duration
	Timeout      time.Duration
}

// Rule implements game.Rule and game.Ticker for crash.
type Rule struct {
	maxBet  int64
	tick    time.Duration
	timeout time.Duration
}

// New creates a crash rule with the given configuration.
func New(cfg *Config) *Rule {
	r := &Rule{
		maxBet:  DefaultMaxBet,
		tick:    DefaultTickInterval,
		timeout: DefaultTimeout,
	}
	if cfg != nil {
		if cfg.MaxBet > 0 {
			r.maxBet = cfg.MaxBet
		}
		if cfg.TickInterval > 0 {
			r.tick = cfg.TickInterval
		}
		if cfg.Timeout > 0 {
			r.timeout = cfg.Timeout
		}
	}
	return r
}

// Kind returns the session kind this rule serves.
func (r *Rule) Kind() session.Kind { return session.KindCrash }

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

// Lifetime bounds the round even if ticking stalls.
func (r *Rule) Lifetime(map[string]any) time.Duration { return r.timeout }

// TickInterval implements game.Ticker.
func (r *Rule) TickInterval() time.Duration { return r.tick }

// Start rolls the hidden crash point. Tests may pin it via "crash_at".
func (r *Rule) Start(account string, wager int64, params map[string]any) (session.Payload, *game.Outcome, error) {
	crashAt := CrashPoint(1 - rand.Float64())
	if params != nil {
		if pinned, ok := params["crash_at"].(float64); ok {
			if pinned < 1.0 || pinned > maxCrash {
				return nil, nil, fmt.Errorf("%w: crash_at out of range", game.ErrInvalidParams)
			}
			crashAt = pinned
		}
	}

	p := &Payload{Multiplier: 1.0, CrashAt: crashAt}
	if crashAt <= 1.0 {
		// instant detonation, the player never gets a tick
		return p, &game.Outcome{Tag: TagCrashed, Payout: 0, Detail: p.detail()}, nil
	}
	return p, nil, nil
}

// Tick advances the multiplier. Returns true once the next step would reach
// the crash point; the multiplier stays at its last safe value so a cashout
// racing the detonation cannot bank the crash point itself.
func (r *Rule) Tick(s *session.Session) bool {
	p, ok := s.Payload.(*Payload)
	if !ok {
		return true
	}
	next := math.Floor(p.Multiplier*growth*100) / 100
	if next >= p.CrashAt {
		return true
	}
	p.Multiplier = next
	return false
}

// Act handles "cashout": the player banks the current multiplier.
func (r *Rule) Act(s *session.Session, action game.Action) (*game.Step, error) {
	p, ok := s.Payload.(*Payload)
	if !ok {
		return nil, game.ErrActionMismatch
	}
	if action.Actor != s.Account {
		return nil, game.ErrIneligible
	}
	if action.Name != "cashout" {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownAction, action.Name)
	}

	payout := int64(math.Round(float64(s.Wager) * p.Multiplier))
	return &game.Step{
		Resolve: true,
		Outcome: game.Outcome{Tag: TagCashout, Payout: payout, Detail: p.detail()},
	}, nil
}

// Expire fires when the round detonates or the deadline passes. The stake
// is lost either way.
func (r *Rule) Expire(s *session.Session) game.Outcome {
	detail := map[string]any{}
	if p, ok := s.Payload.(*Payload); ok {
		detail = p.detail()
	}
	return game.Outcome{Tag: TagCrashed, Payout: 0, Detail: detail}
}

// Cancel refunds the stake before any multiplier is banked.
func (r *Rule) Cancel(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagCancelled, Payout: s.Wager}
}

func (p *Payload) detail() map[string]any {
	return map[string]any{
		"multiplier": p.Multiplier,
		"crash_at":   p.CrashAt,
	}
}
