package trivia

import (
	"errors"
	"sync"
	"time"
)

// ErrPromptPending is returned when an asker already has an unanswered
// setup prompt.
var ErrPromptPending = errors.New("trivia: setup prompt already pending")

// ErrNoPrompt is returned when completing a prompt that was never opened.
var ErrNoPrompt = errors.New("trivia: no pending setup prompt")

// Prompt tracks an asker who has been asked to supply their question and
// answer out of band before the round is opened.
type Prompt struct {
	Asker     string
	Scope     string
	CreatedAt time.Time
}

// Prompts holds at most one pending setup prompt per asker.
type Prompts struct {
	mu      sync.Mutex
	pending map[string]*Prompt
}

// NewPrompts creates an empty prompt registry.
func NewPrompts() *Prompts {
	return &Prompts{pending: make(map[string]*Prompt)}
}

// Open registers a prompt for the asker. Fails if one is already pending.
func (p *Prompts) Open(asker, scope string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[asker]; ok {
		return ErrPromptPending
	}
	p.pending[asker] = &Prompt{Asker: asker, Scope: scope, CreatedAt: time.Now()}
	return nil
}

// Take removes and returns the asker's pending prompt, if any.
func (p *Prompts) Take(asker string) (*Prompt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prompt, ok := p.pending[asker]
	if ok {
		delete(p.pending, asker)
	}
	return prompt, ok
}

// Cancel discards the asker's pending prompt. Returns false if none exists.
func (p *Prompts) Cancel(asker string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[asker]; !ok {
		return false
	}
	delete(p.pending, asker)
	return true
}

// Len returns the number of pending prompts.
func (p *Prompts) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
