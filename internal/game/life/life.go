// Package life implements a free Conway's Game of Life session: a random
// or supplied grid evolves one generation per tick until the session's
// lifetime ends or the owner stops it.
package life

import (
	"fmt"
	"math/rand"
	"time"

	"arcade-engine/internal/game"
	"arcade-engine/internal/session"
)

const (
	DefaultRows         = 12
	DefaultCols         = 12
	DefaultTickInterval = time.Second
	DefaultTimeout      = 2 * time.Minute

	// seedDensity is the chance each cell starts alive in a random grid.
	seedDensity = 0.3
)

// Result tags.
const (
	TagFinished = "finished"
	TagStopped  = "stopped"
)

// Grid is a rectangular field of cells.
type Grid [][]bool

// NewGrid returns a randomly seeded grid.
func NewGrid(rows, cols int) Grid {
	g := make(Grid, rows)
	for y := range g {
		g[y] = make([]bool, cols)
		for x := range g[y] {
			g[y][x] = rand.Float64() < seedDensity
		}
	}
	return g
}

// CountNeighbors returns the number of live cells adjacent to (y, x).
// Edges do not wrap.
func CountNeighbors(g Grid, y, x int) int {
	count := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dy == 0 && dx == 0 {
				continue
			}
			ny, nx := y+dy, x+dx
			if ny < 0 || ny >= len(g) || nx < 0 || nx >= len(g[ny]) {
				continue
			}
			if g[ny][nx] {
				count++
			}
		}
	}
	return count
}

// Step computes the next generation. Live cells survive with two or three
// neighbors; dead cells with exactly three come alive.
func Step(g Grid) Grid {
	next := make(Grid, len(g))
	for y := range g {
		next[y] = make([]bool, len(g[y]))
		for x := range g[y] {
			n := CountNeighbors(g, y, x)
			if g[y][x] {
				next[y][x] = n == 2 || n == 3
			} else {
				next[y][x] = n == 3
			}
		}
	}
	return next
}

// Population returns the number of live cells.
func Population(g Grid) int {
	count := 0
	for _, row := range g {
		for _, alive := range row {
			if alive {
				count++
			}
		}
	}
	return count
}

// Payload is one running simulation.
type Payload struct {
	Grid       Grid
	Generation int
}

// Kind implements session.Payload.
func (p *Payload) Kind() session.Kind { return session.KindLife }

// Config holds configuration for the life rule.
type Config struct {
	TickInterval time.Duration
	Timeout      time.Duration
}

// Rule implements game.Rule and game.Ticker for life.
type Rule struct {
	tick    time.Duration
	timeout time.Duration
}

// New creates a life rule with the given configuration.
func New(cfg *Config) *Rule {
	tick := DefaultTickInterval
	timeout := DefaultTimeout
	if cfg != nil {
		if cfg.TickInterval > 0 {
			tick = cfg.TickInterval
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	}
	return &Rule{tick: tick, timeout: timeout}
}

// Kind returns the session kind this rule serves.
func (r *Rule) Kind() session.Kind { return session.KindLife }

// ValidateWager rejects any stake. Simulations are free.
func (r *Rule) ValidateWager(wager int64) error {
	if wager != 0 {
		return fmt.Errorf("%w: life takes no stake", game.ErrInvalidWager)
	}
	return nil
}

// Lifetime bounds the simulation.
func (r *Rule) Lifetime(map[string]any) time.Duration { return r.timeout }

// TickInterval implements game.Ticker.
func (r *Rule) TickInterval() time.Duration { return r.tick }

// Start seeds the grid, randomly or from params["grid"].
func (r *Rule) Start(account string, wager int64, params map[string]any) (session.Payload, *game.Outcome, error) {
	grid := NewGrid(DefaultRows, DefaultCols)
	if params != nil {
		if supplied, ok := params["grid"].(Grid); ok {
			if len(supplied) == 0 || len(supplied[0]) == 0 {
				return nil, nil, fmt.Errorf("%w: empty grid", game.ErrInvalidParams)
			}
			grid = supplied
		}
	}
	return &Payload{Grid: grid}, nil, nil
}

// Tick advances one generation. The simulation never detonates; the
// session deadline closes it.
func (r *Rule) Tick(s *session.Session) bool {
	p, ok := s.Payload.(*Payload)
	if !ok {
		return true
	}
	p.Grid = Step(p.Grid)
	p.Generation++
	return false
}

// Act handles "stop": the owner ends the simulation early.
func (r *Rule) Act(s *session.Session, action game.Action) (*game.Step, error) {
	p, ok := s.Payload.(*Payload)
	if !ok {
		return nil, game.ErrActionMismatch
	}
	if action.Actor != s.Account {
		return nil, game.ErrIneligible
	}
	if action.Name != "stop" {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownAction, action.Name)
	}
	return &game.Step{
		Resolve: true,
		Outcome: game.Outcome{Tag: TagStopped, Detail: p.detail()},
	}, nil
}

// Expire closes the simulation at its deadline.
func (r *Rule) Expire(s *session.Session) game.Outcome {
	detail := map[string]any{}
	if p, ok := s.Payload.(*Payload); ok {
		detail = p.detail()
	}
	return game.Outcome{Tag: TagFinished, Detail: detail}
}

// Cancel closes the simulation.
func (r *Rule) Cancel(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagStopped}
}

func (p *Payload) detail() map[string]any {
	return map[string]any{
		"generation": p.Generation,
		"population": Population(p.Grid),
	}
}
