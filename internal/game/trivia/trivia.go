// Package trivia implements open trivia rounds: anyone in the scope except
// the asker may answer, every distinct correct answerer is rewarded once,
// and the round closes when its timer runs out.
package trivia

import (
	"fmt"
	"time"

	"arcade-engine/internal/game"
	"arcade-engine/internal/session"
)

const (
	DefaultRewardCredits = 50
	DefaultRewardXP      = 50
	DefaultDuration      = 5 * time.Minute
)

// Result tags.
const (
	TagClosed    = "closed"
	TagCancelled = "cancelled"
)

// Payload is one open trivia round. Rewards are fixed per round so an
// asker-chosen bounty survives a config reload.
type Payload struct {
	Question      string
	Answers       []string
	Asker         string
	Winners       map[string]bool
	RewardCredits int64
	RewardXP      int64
}

// Kind implements session.Payload.
func (p *Payload) Kind() session.Kind { return session.KindTrivia }

// Config holds configuration for the trivia rule.
type Config struct {
	RewardCredits int64
	RewardXP      int64
	Duration      time.Duration
}

// Rule implements game.Rule for trivia.
type Rule struct {
	rewardCredits int64
	rewardXP      int64
	duration      time.Duration
}

// New creates a trivia rule with the given configuration.
func New(cfg *Config) *Rule {
	r := &Rule{
		rewardCredits: DefaultRewardCredits,
		rewardXP:      DefaultRewardXP,
		duration:      DefaultDuration,
	}
	if cfg != nil {
		if cfg.RewardCredits > 0 {
			r.rewardCredits = cfg.RewardCredits
		}
		if cfg.RewardXP > 0 {
			r.rewardXP = cfg.RewardXP
		}
		if cfg.Duration > 0 {
			r.duration = cfg.Duration
		}
	}
	return r
}

// Kind returns the session kind this rule serves.
func (r *Rule) Kind() session.Kind { return session.KindTrivia }

// ValidateWager rejects any stake. Trivia rounds are free to enter and pay
// from the house.
func (r *Rule) ValidateWager(wager int64) error {
	if wager != 0 {
		return fmt.Errorf("%w: trivia takes no stake", game.ErrInvalidWager)
	}
	return nil
}

// Lifetime returns how long the round stays open. The asker may shorten or
// extend it via params["duration"].
func (r *Rule) Lifetime(params map[string]any) time.Duration {
	if d, ok := params["duration"].(time.Duration); ok && d > 0 {
		return d
	}
	return r.duration
}

// Start opens a round from params["question"] and params["answers"].
// params["credits"] and params["xp"] override the configured rewards for
// this round only.
func (r *Rule) Start(account string, wager int64, params map[string]any) (session.Payload, *game.Outcome, error) {
	question, _ := params["question"].(string)
	answers, _ := params["answers"].([]string)
	if question == "" || len(answers) == 0 {
		return nil, nil, fmt.Errorf("%w: need a question and at least one answer", game.ErrInvalidParams)
	}
	for _, a := range answers {
		if Normalize(a) == "" {
			return nil, nil, fmt.Errorf("%w: blank answer", game.ErrInvalidParams)
		}
	}

	credits, err := rewardOverride(params, "credits", r.rewardCredits)
	if err != nil {
		return nil, nil, err
	}
	xp, err := rewardOverride(params, "xp", r.rewardXP)
	if err != nil {
		return nil, nil, err
	}

	return &Payload{
		Question:      question,
		Answers:       answers,
		Asker:         account,
		Winners:       make(map[string]bool),
		RewardCredits: credits,
		RewardXP:      xp,
	}, nil, nil
}

func rewardOverride(params map[string]any, key string, fallback int64) (int64, error) {
	v, ok := params[key]
	if !ok {
		return fallback, nil
	}
	n, ok := v.(int64)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative amount", game.ErrInvalidParams, key)
	}
	return n, nil
}

// Act handles "answer". The asker cannot answer their own question. A
// correct guess from a new answerer carries a reward; repeat winners get
// nothing more, and the round stays open either way.
func (r *Rule) Act(s *session.Session, action game.Action) (*game.Step, error) {
	p, ok := s.Payload.(*Payload)
	if !ok {
		return nil, game.ErrActionMismatch
	}
	if action.Name != "answer" {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownAction, action.Name)
	}
	if action.Actor == p.Asker {
		return nil, fmt.Errorf("%w: asker cannot answer", game.ErrIneligible)
	}

	guess, _ := action.Data["guess"].(string)
	if !IsMatch(guess, p.Answers) {
		return &game.Step{Reply: map[string]any{"correct": false}}, nil
	}
	if p.Winners[action.Actor] {
		return &game.Step{Reply: map[string]any{"correct": true, "already_won": true}}, nil
	}

	p.Winners[action.Actor] = true
	return &game.Step{
		Updated: true,
		Award: &game.Award{
			Account: action.Actor,
			Credits: p.RewardCredits,
			XP:      p.RewardXP,
		},
		Reply: map[string]any{"correct": true},
	}, nil
}

// Expire closes the round and reveals the answer. Rewards were paid as
// they were earned, so nothing is owed here.
func (r *Rule) Expire(s *session.Session) game.Outcome {
	detail := map[string]any{}
	if p, ok := s.Payload.(*Payload); ok {
		detail["question"] = p.Question
		detail["answer"] = p.Answers[0]
		detail["winners"] = len(p.Winners)
	}
	return game.Outcome{Tag: TagClosed, Payout: 0, Detail: detail}
}

// Cancel closes the round early.
func (r *Rule) Cancel(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagCancelled, Payout: 0}
}
