// Package session defines the session entity, the per-scope registry, and
// the expiry scheduler that together drive timed game lifecycles.
package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies the game variant a session runs.
type Kind string

const (
	KindBlackjack Kind = "blackjack"
	KindCrash     Kind = "crash"
	KindRoulette  Kind = "roulette"
	KindDice      Kind = "dice"
	KindSlots     Kind = "slots"
	KindCoinflip  Kind = "coinflip"
	KindTrivia    Kind = "trivia"
	KindLife      Kind = "life"
)

// State is the lifecycle state of a session.
type State int32

const (
	// StateCreated means the session is allocated but its wager has not
	// been debited yet.
	StateCreated State = iota
	// StateActive means the session is running and racing its deadline.
	StateActive
	// StateResolving means exactly one resolution path has claimed the
	// session and is computing its outcome.
	StateResolving
	// StateResolved is terminal.
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Payload carries the kind-specific mutable state of a session (dealt
// cards, current multiplier, accepted answers, grid cells). Concrete types
// live in the game packages; access must go through Session.Update.
type Payload interface {
	Kind() Kind
}

// Session represents one in-progress game or quiz bound to a scope.
// The state field is the exactly-once resolution gate: the compare-and-swap
// from Active to Resolving has exactly one winner no matter how a user
// action and the expiry timer interleave.
type Session struct {
	Scope      string
	Account    string
	GameKind   Kind
	Wager      int64
	DeadlineAt time.Time
	CreatedAt  time.Time
	Payload    Payload
	ResultTag  string

	state atomic.Int32
	mu    sync.Mutex
	timer *Handle
}

// New allocates a session in StateCreated.
func New(scope, account string, kind Kind, wager int64, payload Payload) *Session {
	s := &Session{
		Scope:     scope,
		Account:   account,
		GameKind:  kind,
		Wager:     wager,
		CreatedAt: time.Now(),
		Payload:   payload,
	}
	s.state.Store(int32(StateCreated))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Activate transitions Created -> Active. Returns false if the session was
// not in StateCreated.
func (s *Session) Activate() bool {
	return s.state.CompareAndSwap(int32(StateCreated), int32(StateActive))
}

// BeginResolve attempts the Active -> Resolving transition. Exactly one
// caller wins; every other caller (the losing side of a timer/action race,
// or a stale retry) gets false and must not mutate the session further.
func (s *Session) BeginResolve() bool {
	return s.state.CompareAndSwap(int32(StateActive), int32(StateResolving))
}

// Finish marks the session Resolved and records its result tag.
// Only the BeginResolve winner may call it.
func (s *Session) Finish(tag string) {
	s.ResultTag = tag
	s.state.Store(int32(StateResolved))
}

// Terminal reports whether the session has left the Active pool for good.
func (s *Session) Terminal() bool {
	return s.State() == StateResolved
}

// Update runs fn while holding the session's payload lock. All payload
// reads and writes after activation must go through here.
func (s *Session) Update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// SetTimer attaches the expiry timer handle armed for this session.
func (s *Session) SetTimer(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = h
}

// CancelTimer stops the pending expiry timer, if any. Safe to call when no
// timer is set or when the timer already fired.
func (s *Session) CancelTimer() {
	s.mu.Lock()
	h := s.timer
	s.mu.Unlock()
	h.Cancel()
}

// Remaining returns the time until the deadline, clamped at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.DeadlineAt.IsZero() {
		return 0
	}
	d := s.DeadlineAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
