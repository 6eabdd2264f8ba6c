// Package game defines the payout-rule interface and registry shared by all
// game variants. Rules are pure strategies: they read and mutate session
// payloads but never touch the ledger, the registry, or timers themselves.
package game

import (
	"errors"
	"time"

	"arcade-engine/internal/session"
)

// Errors shared across game rules.
var (
	ErrInvalidWager   = errors.New("wager must be positive and within the table limit")
	ErrUnknownAction  = errors.New("unknown action for this game")
	ErrIneligible     = errors.New("actor is not eligible for this action")
	ErrInvalidParams  = errors.New("invalid game parameters")
	ErrUnknownKind    = errors.New("no rule registered for kind")
	ErrActionMismatch = errors.New("action does not apply to session state")
)

// Trigger identifies which resolution path claimed a session.
type Trigger int

const (
	// TriggerAction is an explicit user action (stand, cash out, roll).
	TriggerAction Trigger = iota
	// TriggerExpiry is the background deadline timer firing.
	TriggerExpiry
	// TriggerCancel is an owner-initiated cancellation.
	TriggerCancel
)

func (t Trigger) String() string {
	switch t {
	case TriggerAction:
		return "action"
	case TriggerExpiry:
		return "expiry"
	case TriggerCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Action is a user input routed to a session's rule.
type Action struct {
	Name  string // e.g. "hit", "stand", "cashout", "answer", "spin"
	Actor string // account performing the action
	Data  map[string]any
}

// Outcome is the terminal result of a session, computed by the winning
// resolution path. Payout is the gross amount credited back to the
// session's account (stake included where the rules return it); zero means
// the wager is lost.
type Outcome struct {
	Tag    string
	Payout int64
	XP     int64
	Detail map[string]any
}

// Award is an in-flight reward for sessions that pay per event without
// terminating (trivia's distinct correct respondents).
type Award struct {
	Account string
	Credits int64
	XP      int64
}

// Step is the result of applying one action to an active session.
type Step struct {
	// Resolve requests termination of the session with Outcome.
	Resolve bool
	Outcome Outcome
	// Updated indicates payload changes worth a SessionUpdated event.
	Updated bool
	// Award pays a single respondent while the session stays active.
	Award *Award
	// Reply carries render-relevant fields for the actor.
	Reply map[string]any
}

// Rule is the strategy implemented once per game variant.
// All payload access happens inside Session.Update, driven by the caller.
type Rule interface {
	// Kind returns the session kind this rule serves.
	Kind() session.Kind

	// ValidateWager checks the stake before any session or ledger mutation.
	ValidateWager(wager int64) error

	// Lifetime returns the session deadline duration, which may depend on
	// creation parameters (trivia durations are caller-chosen).
	Lifetime(params map[string]any) time.Duration

	// Start builds the initial payload. A non-nil Outcome requests
	// immediate resolution (a natural blackjack resolves before any action).
	Start(account string, wager int64, params map[string]any) (session.Payload, *Outcome, error)

	// Act applies a user action to an active session.
	Act(s *session.Session, action Action) (*Step, error)

	// Expire computes the outcome when the deadline timer wins the
	// resolution race.
	Expire(s *session.Session) Outcome

	// Cancel computes the outcome of an owner-initiated cancellation.
	Cancel(s *session.Session) Outcome
}

// Ticker is implemented by rules whose sessions advance on a periodic tick
// (crash multiplier growth, life generations). Tick mutates the payload;
// a true return means the session detonated and must resolve via Expire.
type Ticker interface {
	TickInterval() time.Duration
	Tick(s *session.Session) (detonated bool)
}
