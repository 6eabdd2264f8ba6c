// Package engine coordinates session lifecycles: it debits wagers, arms
// expiry timers, routes user actions to game rules, and guarantees that
// every session settles against the ledger exactly once no matter how an
// action races the deadline timer.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"arcade-engine/internal/game"
	"arcade-engine/internal/game/trivia"
	"arcade-engine/internal/ledger"
	"arcade-engine/internal/model"
	"arcade-engine/internal/session"
)

// Ledger is the subset of the ledger service the engine settles against.
type Ledger interface {
	Ensure(ctx context.Context, id string) (*model.Account, error)
	Debit(ctx context.Context, id string, amount int64, txType string, sessionID *string) error
	Credit(ctx context.Context, id string, amount int64, txType string, sessionID *string) (*model.Account, error)
	Award(ctx context.Context, id string, credits, xp int64, txType string, sessionID *string) (*model.Account, error)
	AwardXP(ctx context.Context, id string, xp int64) (*model.Account, error)
}

// Engine drives sessions from creation to resolution.
type Engine struct {
	sessions *session.Registry
	sched    *session.Scheduler
	rules    *game.Registry
	ledger   Ledger
	sink     Sink
	log      zerolog.Logger
	prompts  *trivia.Prompts
}

// New creates an engine. A nil sink falls back to logging events.
func New(sessions *session.Registry, sched *session.Scheduler, rules *game.Registry, led Ledger, sink Sink, log zerolog.Logger) *Engine {
	if sink == nil {
		sink = NewLogSink(log)
	}
	return &Engine{
		sessions: sessions,
		sched:    sched,
		rules:    rules,
		ledger:   led,
		sink:     sink,
		log:      log,
		prompts:  trivia.NewPrompts(),
	}
}

// OpenTriviaPrompt reserves a setup prompt for an asker who will supply
// their question and answers out of band. At most one prompt per asker.
func (e *Engine) OpenTriviaPrompt(asker, scope string) error {
	return e.prompts.Open(asker, scope)
}

// AbandonTriviaPrompt discards the asker's pending prompt, if any.
func (e *Engine) AbandonTriviaPrompt(asker string) bool {
	return e.prompts.Cancel(asker)
}

// PostTrivia completes the asker's pending prompt by opening the round in
// the prompted scope. A rejected round (busy scope, bad params) restores
// the prompt so the asker can retry.
func (e *Engine) PostTrivia(ctx context.Context, asker string, params map[string]any) (*session.Session, error) {
	prompt, ok := e.prompts.Take(asker)
	if !ok {
		return nil, trivia.ErrNoPrompt
	}
	s, err := e.RequestSession(ctx, prompt.Scope, asker, session.KindTrivia, 0, params)
	if err != nil {
		if openErr := e.prompts.Open(asker, prompt.Scope); openErr != nil {
			e.log.Error().Err(openErr).Str("asker", asker).Msg("restoring trivia prompt failed")
		}
		return nil, err
	}
	return s, nil
}

// RequestSession opens a session for the scope: validate the wager, build
// the payload, debit the stake, then activate and arm the deadline timer.
// The wager is only debited after the scope slot is claimed, so a Busy
// rejection never touches the ledger.
func (e *Engine) RequestSession(ctx context.Context, scope, account string, kind session.Kind, wager int64, params map[string]any) (*session.Session, error) {
	rule, ok := e.rules.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", game.ErrUnknownKind, kind)
	}
	if err := rule.ValidateWager(wager); err != nil {
		return nil, err
	}

	payload, immediate, err := rule.Start(account, wager, params)
	if err != nil {
		return nil, err
	}
	if _, err := e.ledger.Ensure(ctx, account); err != nil {
		return nil, err
	}

	s, err := e.sessions.Create(scope, account, kind, wager, payload)
	if err != nil {
		return nil, err
	}

	if wager > 0 {
		sid := s.Scope
		if err := e.ledger.Debit(ctx, account, wager, model.TxTypeWager, &sid); err != nil {
			// the slot was claimed but never funded; free it for a retry
			e.sessions.Remove(scope)
			return nil, err
		}
	}

	s.Activate()

	if immediate != nil {
		// a natural resolves before any timer is armed
		if s.BeginResolve() {
			e.finish(ctx, s, *immediate, game.TriggerAction)
		}
		return s, nil
	}

	s.DeadlineAt = e.sched.Now().Add(rule.Lifetime(params))
	s.SetTimer(e.sched.Arm(scope, s.DeadlineAt, e.expire))
	if ticker, ok := rule.(game.Ticker); ok {
		e.armTick(s, ticker)
	}

	e.sink.Publish(Event{
		Type:    EventSessionStarted,
		Scope:   scope,
		Account: account,
		Kind:    kind,
		Payout:  -wager,
	})
	return s, nil
}

// Act routes a user action to the scope's active session. A resolving step
// must still win the Active to Resolving race; if the expiry timer got
// there first the action is rejected and the timer's outcome stands.
func (e *Engine) Act(ctx context.Context, scope string, action game.Action) (*game.Step, error) {
	s := e.sessions.Get(scope)
	if s == nil || s.Terminal() {
		return nil, session.ErrNoActiveSession
	}
	rule, ok := e.rules.Get(s.GameKind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", game.ErrUnknownKind, s.GameKind)
	}

	var step *game.Step
	var actErr error
	s.Update(func() {
		if s.State() != session.StateActive {
			actErr = session.ErrNoActiveSession
			return
		}
		step, actErr = rule.Act(s, action)
	})
	if actErr != nil {
		return nil, actErr
	}

	if step.Award != nil {
		e.payAward(ctx, s, step.Award)
	}
	if step.Updated && !step.Resolve {
		e.sink.Publish(Event{
			Type:    EventSessionUpdated,
			Scope:   scope,
			Account: s.Account,
			Kind:    s.GameKind,
			Detail:  step.Reply,
		})
	}
	if step.Resolve {
		if !s.BeginResolve() {
			return nil, session.ErrNoActiveSession
		}
		e.finish(ctx, s, step.Outcome, game.TriggerAction)
	}
	return step, nil
}

// Cancel aborts the scope's session on behalf of its owner.
func (e *Engine) Cancel(ctx context.Context, scope, actor string) (game.Outcome, error) {
	s := e.sessions.Get(scope)
	if s == nil || s.Terminal() {
		return game.Outcome{}, session.ErrNoActiveSession
	}
	if actor != s.Account {
		return game.Outcome{}, game.ErrIneligible
	}
	rule, ok := e.rules.Get(s.GameKind)
	if !ok {
		return game.Outcome{}, fmt.Errorf("%w: %s", game.ErrUnknownKind, s.GameKind)
	}
	if !s.BeginResolve() {
		return game.Outcome{}, session.ErrNoActiveSession
	}

	var out game.Outcome
	s.Update(func() { out = rule.Cancel(s) })
	e.finish(ctx, s, out, game.TriggerCancel)
	return out, nil
}

// Session returns the scope's current session, terminal or not.
func (e *Engine) Session(scope string) *session.Session {
	return e.sessions.Get(scope)
}

// expire is the deadline timer callback. Claiming the resolution gate
// first means a concurrent action observed after this point loses cleanly.
func (e *Engine) expire(scope string) {
	s := e.sessions.Get(scope)
	if s == nil {
		return
	}
	if !s.BeginResolve() {
		return
	}
	rule, ok := e.rules.Get(s.GameKind)
	if !ok {
		e.log.Error().Str("scope", scope).Str("kind", string(s.GameKind)).Msg("expiry for unknown kind")
		return
	}

	var out game.Outcome
	s.Update(func() { out = rule.Expire(s) })
	e.finish(context.Background(), s, out, game.TriggerExpiry)
}

// finish settles the outcome against the ledger and retires the session.
// It runs exactly once per session, on whichever path won BeginResolve.
func (e *Engine) finish(ctx context.Context, s *session.Session, out game.Outcome, trigger game.Trigger) {
	s.CancelTimer()

	if out.Payout > 0 {
		txType := model.TxTypePayout
		if trigger != game.TriggerAction {
			txType = model.TxTypeRefund
		}
		sid := s.Scope
		if _, err := e.ledger.Credit(ctx, s.Account, out.Payout, txType, &sid); err != nil {
			e.log.Error().Err(err).
				Str("scope", s.Scope).
				Str("account", s.Account).
				Int64("payout", out.Payout).
				Msg("payout credit failed, balance needs reconciling")
		}
	}
	if out.XP > 0 {
		if _, err := e.ledger.AwardXP(ctx, s.Account, out.XP); err != nil {
			e.log.Error().Err(err).Str("account", s.Account).Msg("xp award failed")
		}
	}

	s.Finish(out.Tag)
	e.sessions.Remove(s.Scope)
	e.sink.Publish(Event{
		Type:    EventSessionResolved,
		Scope:   s.Scope,
		Account: s.Account,
		Kind:    s.GameKind,
		Tag:     out.Tag,
		Payout:  out.Payout,
		Trigger: trigger.String(),
		Detail:  out.Detail,
	})
}

// payAward credits a mid-session reward (a correct trivia answer) without
// resolving the session.
func (e *Engine) payAward(ctx context.Context, s *session.Session, award *game.Award) {
	sid := s.Scope
	if _, err := e.ledger.Award(ctx, award.Account, award.Credits, award.XP, model.TxTypeTrivia, &sid); err != nil {
		e.log.Error().Err(err).
			Str("scope", s.Scope).
			Str("account", award.Account).
			Msg("award payment failed")
		return
	}
	e.sink.Publish(Event{
		Type:    EventAwardPaid,
		Scope:   s.Scope,
		Account: award.Account,
		Kind:    s.GameKind,
		Payout:  award.Credits,
	})
}

// armTick drives a Ticker rule. Each tick re-arms the next one while the
// session stays active; a detonation routes through the expiry path so it
// shares the same resolution gate.
func (e *Engine) armTick(s *session.Session, ticker game.Ticker) {
	interval := ticker.TickInterval()
	var fire func()
	fire = func() {
		if s.State() != session.StateActive {
			return
		}
		detonated := false
		s.Update(func() {
			if s.State() == session.StateActive {
				detonated = ticker.Tick(s)
			}
		})
		if detonated {
			e.expire(s.Scope)
			return
		}
		if s.State() == session.StateActive {
			e.sink.Publish(Event{
				Type:    EventSessionUpdated,
				Scope:   s.Scope,
				Account: s.Account,
				Kind:    s.GameKind,
				Detail:  map[string]any{"remaining": s.Remaining(e.sched.Now())},
			})
			e.sched.After(interval, fire)
		}
	}
	e.sched.After(interval, fire)
}

var _ Ledger = (*ledger.Service)(nil)
