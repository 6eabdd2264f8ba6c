// Package blackjack implements the blackjack session rule: player hit/stand
// against an auto-playing dealer, racing a turn deadline that refunds the
// stake if the player walks away.
package blackjack

import (
	"fmt"
	"math/rand"
	"time"

	"arcade-engine/internal/game"
	"arcade-engine/internal/session"
)

const (
	// DefaultMaxBet is the maximum allowed stake.
	DefaultMaxBet = 10000

	// DefaultTimeout is how long the player has before the session expires
	// and the stake is refunded.
	DefaultTimeout = 2 * time.Minute

	// dealerStand is the hand value at which the dealer stops drawing.
	dealerStand = 17
)

// Result tags.
const (
	TagBlackjack = "blackjack" // natural 21, pays 3:2
	TagWin       = "win"
	TagLose      = "lose"
	TagPush      = "push"
	TagBust      = "bust"
	TagExpired   = "expired"
	TagCancelled = "cancelled"
)

// Card is a single playing card.
type Card struct {
	Rank string
	Suit string
}

func (c Card) String() string {
	return c.Rank + c.Suit
}

var (
	suits = []string{"♠", "♥", "♦", "♣"}
	ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
)

// NewDeck returns a shuffled 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, suit := range suits {
		for _, rank := range ranks {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// CardValue returns the blackjack value of a card. Aces count 11 here and
// are reduced in HandValue.
func CardValue(c Card) int {
	switch c.Rank {
	case "J", "Q", "K":
		return 10
	case "A":
		return 11
	case "10":
		return 10
	default:
		return int(c.Rank[0] - '0')
	}
}

// HandValue returns the total value of a hand, reducing aces from 11 to 1
// while the total is over 21.
func HandValue(hand []Card) int {
	value := 0
	aces := 0
	for _, c := range hand {
		value += CardValue(c)
		if c.Rank == "A" {
			aces++
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value
}

// DealerPlay draws cards for the dealer from the deck until the dealer's
// hand reaches the stand threshold. Returns the remaining deck and hand.
func DealerPlay(deck, dealer []Card) ([]Card, []Card) {
	for HandValue(dealer) < dealerStand && len(deck) > 0 {
		dealer = append(dealer, deck[len(deck)-1])
		deck = deck[:len(deck)-1]
	}
	return deck, dealer
}

// Settle compares a non-busted player hand against a finished dealer hand.
// The payout is gross: a win returns double the stake, a push returns it.
func Settle(player, dealer []Card, wager int64) game.Outcome {
	pv := HandValue(player)
	dv := HandValue(dealer)

	detail := map[string]any{
		"player":       handStrings(player),
		"dealer":       handStrings(dealer),
		"player_value": pv,
		"dealer_value": dv,
	}

	switch {
	case dv > 21 || pv > dv:
		return game.Outcome{Tag: TagWin, Payout: wager * 2, Detail: detail}
	case pv < dv:
		return game.Outcome{Tag: TagLose, Payout: 0, Detail: detail}
	default:
		return game.Outcome{Tag: TagPush, Payout: wager, Detail: detail}
	}
}

func handStrings(hand []Card) []string {
	out := make([]string, len(hand))
	for i, c := range hand {
		out[i] = c.String()
	}
	return out
}

// Payload holds one hand in progress.
type Payload struct {
	Deck   []Card
	Player []Card
	Dealer []Card
}

// Kind implements session.Payload.
func (p *Payload) Kind() session.Kind { return session.KindBlackjack }

func (p *Payload) draw() Card {
	c := p.Deck[len(p.Deck)-1]
	p.Deck = p.Deck[:len(p.Deck)-1]
	return c
}

// Config holds configuration for the blackjack rule.
type Config struct {
	MaxBet  int64
	Timeout time.Duration
}

// Rule implements game.Rule for blackjack.
type Rule struct {
	maxBet  int64
	timeout time.Duration
}

// New creates a blackjack rule with the given configuration.
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
func (r *Rule) Kind() session.Kind { return session.KindBlackjack }

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

// Lifetime returns the player's turn deadline.
func (r *Rule) Lifetime(map[string]any) time.Duration { return r.timeout }

// Start deals the initial hands. A natural 21 resolves immediately: against
// a dealer 21 it pushes, otherwise it pays 3:2.
func (r *Rule) Start(account string, wager int64, params map[string]any) (session.Payload, *game.Outcome, error) {
	deck := deckFromParams(params)
	if deck == nil {
		deck = NewDeck()
	}
	if len(deck) < 4 {
		return nil, nil, fmt.Errorf("%w: deck too small", game.ErrInvalidParams)
	}

	p := &Payload{Deck: deck}
	p.Player = []Card{p.draw(), p.draw()}
	p.Dealer = []Card{p.draw(), p.draw()}

	if HandValue(p.Player) == 21 {
		detail := map[string]any{
			"player": handStrings(p.Player),
			"dealer": handStrings(p.Dealer),
		}
		if HandValue(p.Dealer) == 21 {
			return p, &game.Outcome{Tag: TagPush, Payout: wager, Detail: detail}, nil
		}
		return p, &game.Outcome{Tag: TagBlackjack, Payout: wager * 5 / 2, Detail: detail}, nil
	}

	return p, nil, nil
}

// Act handles "hit" and "stand". A hit that busts resolves the session; a
// hit landing exactly on 21 stands automatically.
func (r *Rule) Act(s *session.Session, action game.Action) (*game.Step, error) {
	p, ok := s.Payload.(*Payload)
	if !ok {
		return nil, game.ErrActionMismatch
	}
	if action.Actor != s.Account {
		return nil, game.ErrIneligible
	}

	switch action.Name {
	case "hit":
		if len(p.Deck) == 0 {
			// nothing left to draw, settle the hand as it stands
			return r.stand(p, s.Wager), nil
		}
		p.Player = append(p.Player, p.draw())
		value := HandValue(p.Player)
		if value > 21 {
			return &game.Step{
				Resolve: true,
				Outcome: game.Outcome{
					Tag:    TagBust,
					Payout: 0,
					Detail: map[string]any{
						"player":       handStrings(p.Player),
						"dealer":       handStrings(p.Dealer),
						"player_value": value,
					},
				},
			}, nil
		}
		if value == 21 {
			return r.stand(p, s.Wager), nil
		}
		return &game.Step{
			Updated: true,
			Reply: map[string]any{
				"player":       handStrings(p.Player),
				"player_value": value,
			},
		}, nil

	case "stand":
		return r.stand(p, s.Wager), nil

	default:
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownAction, action.Name)
	}
}

func (r *Rule) stand(p *Payload, wager int64) *game.Step {
	p.Deck, p.Dealer = DealerPlay(p.Deck, p.Dealer)
	return &game.Step{
		Resolve: true,
		Outcome: Settle(p.Player, p.Dealer, wager),
	}
}

// Expire refunds the stake: an abandoned hand is never forfeited.
func (r *Rule) Expire(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagExpired, Payout: s.Wager}
}

// Cancel refunds the stake.
func (r *Rule) Cancel(s *session.Session) game.Outcome {
	return game.Outcome{Tag: TagCancelled, Payout: s.Wager}
}

// deckFromParams lets callers supply a fixed deck, drawn from the end.
func deckFromParams(params map[string]any) []Card {
	if params == nil {
		return nil
	}
	deck, ok := params["deck"].([]Card)
	if !ok {
		return nil
	}
	out := make([]Card, len(deck))
	copy(out, deck)
	return out
}
