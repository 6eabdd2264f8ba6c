package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade-engine/internal/game"
	"arcade-engine/internal/game/blackjack"
	"arcade-engine/internal/game/crash"
	"arcade-engine/internal/game/trivia"
	"arcade-engine/internal/ledger"
	"arcade-engine/internal/model"
	"arcade-engine/internal/session"
)

type txRec struct {
	account string
	amount  int64
	txType  string
}

// memLedger is an in-memory Ledger sufficient for engine tests.
type memLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	xp       map[string]int64
	credits  []txRec
	debits   []txRec
}

func newMemLedger() *memLedger {
	return &memLedger{
		balances: make(map[string]int64),
		xp:       make(map[string]int64),
	}
}

func (m *memLedger) fund(id string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] += amount
}

func (m *memLedger) balance(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id]
}

func (m *memLedger) creditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.credits)
}

func (m *memLedger) Ensure(ctx context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.Account{ID: id, Balance: m.balances[id]}, nil
}

func (m *memLedger) Debit(ctx context.Context, id string, amount int64, txType string, sessionID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[id] < amount {
		return ledger.ErrInsufficientFunds
	}
	m.balances[id] -= amount
	m.debits = append(m.debits, txRec{account: id, amount: amount, txType: txType})
	return nil
}

func (m *memLedger) Credit(ctx context.Context, id string, amount int64, txType string, sessionID *string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] += amount
	m.credits = append(m.credits, txRec{account: id, amount: amount, txType: txType})
	return &model.Account{ID: id, Balance: m.balances[id]}, nil
}

func (m *memLedger) Award(ctx context.Context, id string, credits, xp int64, txType string, sessionID *string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] += credits
	m.xp[id] += xp
	m.credits = append(m.credits, txRec{account: id, amount: credits, txType: txType})
	return &model.Account{ID: id, Balance: m.balances[id], XP: m.xp[id]}, nil
}

func (m *memLedger) AwardXP(ctx context.Context, id string, xp int64) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.xp[id] += xp
	return &model.Account{ID: id, XP: m.xp[id]}, nil
}

// memSink records published events.
type memSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *memSink) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *memSink) byType(eventType string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newEngine(t *testing.T, clock quartz.Clock) (*Engine, *memLedger, *memSink) {
	t.Helper()
	rules := game.NewRegistry()
	require.NoError(t, rules.Register(blackjack.New(nil)))
	require.NoError(t, rules.Register(crash.New(&crash.Config{TickInterval: time.Second})))
	require.NoError(t, rules.Register(trivia.New(nil)))

	led := newMemLedger()
	sink := &memSink{}
	e := New(session.NewRegistry(), session.NewScheduler(clock), rules, led, sink, zerolog.Nop())
	return e, led, sink
}

func card(rank string) blackjack.Card { return blackjack.Card{Rank: rank, Suit: "♠"} }

// noNaturalDeck deals player K,9 and dealer 10,8: stand wins 2x.
func noNaturalDeck() []blackjack.Card {
	return []blackjack.Card{card("2"), card("3"), card("8"), card("10"), card("9"), card("K")}
}

func TestRequestSessionDebitsWagerAndActivates(t *testing.T) {
	ctx := context.Background()
	e, led, sink := newEngine(t, quartz.NewReal())
	led.fund("alice", 1000)

	s, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
		map[string]any{"deck": noNaturalDeck()})
	require.NoError(t, err)

	assert.Equal(t, session.StateActive, s.State())
	assert.Equal(t, int64(900), led.balance("alice"))
	require.Len(t, led.debits, 1)
	assert.Equal(t, model.TxTypeWager, led.debits[0].txType)
	assert.Len(t, sink.byType(EventSessionStarted), 1)
}

func TestBusyScopeNeverTouchesLedger(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newEngine(t, quartz.NewReal())
	led.fund("alice", 1000)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
		map[string]any{"deck": noNaturalDeck()})
	require.NoError(t, err)

	_, err = e.RequestSession(ctx, "chat:1", "bob", session.KindBlackjack, 100,
		map[string]any{"deck": noNaturalDeck()})
	assert.ErrorIs(t, err, session.ErrBusy)

	assert.Len(t, led.debits, 1, "the rejected request must not debit")
	assert.Equal(t, int64(900), led.balance("alice"))
}

func TestInsufficientFundsFreesScopeForRetry(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newEngine(t, quartz.NewReal())
	led.fund("alice", 50)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
		map[string]any{"deck": noNaturalDeck()})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	led.fund("alice", 100)
	_, err = e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
		map[string]any{"deck": noNaturalDeck()})
	assert.NoError(t, err, "a failed debit must free the scope")
}

func TestNaturalResolvesBeforeAnyAction(t *testing.T) {
	ctx := context.Background()
	e, led, sink := newEngine(t, quartz.NewReal())
	led.fund("alice", 1000)

	// player A,K is a natural against dealer 9,5
	deck := []blackjack.Card{card("2"), card("3"), card("5"), card("9"), card("K"), card("A")}
	s, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
		map[string]any{"deck": deck})
	require.NoError(t, err)

	assert.True(t, s.Terminal())
	assert.Equal(t, blackjack.TagBlackjack, s.ResultTag)
	assert.Equal(t, int64(1150), led.balance("alice"), "900 after stake plus 250 gross payout")
	assert.Nil(t, e.Session("chat:1"), "resolved sessions leave the registry")
	assert.Len(t, sink.byType(EventSessionResolved), 1)
}

// TestTimerActionRacePaysExactlyOnce drives a user action and the expiry
// callback into the same session from many goroutines. Whatever
// interleaving occurs, exactly one of them settles the ledger.
func TestTimerActionRacePaysExactlyOnce(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		e, led, sink := newEngine(t, quartz.NewReal())
		led.fund("alice", 100)

		_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
			map[string]any{"deck": noNaturalDeck()})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.Act(ctx, "chat:1", game.Action{Name: "stand", Actor: "alice"})
		}()
		go func() {
			defer wg.Done()
			e.expire("chat:1")
		}()
		wg.Wait()

		require.Equal(t, 1, led.creditCount(), "round %d: exactly one settlement", round)
		resolved := sink.byType(EventSessionResolved)
		require.Len(t, resolved, 1, "round %d", round)

		// stand wins 200 gross, expiry refunds the 100 stake
		switch resolved[0].Trigger {
		case "action":
			assert.Equal(t, int64(200), led.balance("alice"))
		case "expiry":
			assert.Equal(t, int64(100), led.balance("alice"))
		default:
			t.Fatalf("round %d: unexpected trigger %q", round, resolved[0].Trigger)
		}
	}
}

func TestDeadlineExpiryRefundsBlackjack(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	e, led, sink := newEngine(t, mock)
	led.fund("alice", 100)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
		map[string]any{"deck": noNaturalDeck()})
	require.NoError(t, err)
	require.Equal(t, int64(0), led.balance("alice"))

	mock.Advance(blackjack.DefaultTimeout).MustWait(ctx)

	assert.Equal(t, int64(100), led.balance("alice"), "the abandoned stake comes back")
	require.Len(t, led.credits, 1)
	assert.Equal(t, model.TxTypeRefund, led.credits[0].txType)

	resolved := sink.byType(EventSessionResolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, blackjack.TagExpired, resolved[0].Tag)
	assert.Equal(t, "expiry", resolved[0].Trigger)
	assert.Nil(t, e.Session("chat:1"))
}

func TestActionAfterResolutionIsRejected(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newEngine(t, quartz.NewReal())
	led.fund("alice", 100)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
		map[string]any{"deck": noNaturalDeck()})
	require.NoError(t, err)

	_, err = e.Act(ctx, "chat:1", game.Action{Name: "stand", Actor: "alice"})
	require.NoError(t, err)

	_, err = e.Act(ctx, "chat:1", game.Action{Name: "stand", Actor: "alice"})
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
	assert.Equal(t, 1, led.creditCount())
}

func TestCrashTicksThenDetonates(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	e, led, sink := newEngine(t, mock)
	led.fund("alice", 100)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindCrash, 100,
		map[string]any{"crash_at": 1.1})
	require.NoError(t, err)

	// 1.00 -> 1.05 on the first tick, detonation on the second
	mock.Advance(time.Second).MustWait(ctx)
	require.Len(t, sink.byType(EventSessionResolved), 0)

	mock.Advance(time.Second).MustWait(ctx)

	resolved := sink.byType(EventSessionResolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, crash.TagCrashed, resolved[0].Tag)
	assert.Equal(t, int64(0), led.balance("alice"), "the stake is lost on detonation")
	assert.Equal(t, 0, led.creditCount())
}

func TestTickUpdatesCarryRemainingTime(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	e, led, sink := newEngine(t, mock)
	led.fund("alice", 100)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindCrash, 100,
		map[string]any{"crash_at": 500.0})
	require.NoError(t, err)

	mock.Advance(time.Second).MustWait(ctx)

	updated := sink.byType(EventSessionUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, crash.DefaultTimeout-time.Second, updated[0].Detail["remaining"])
}

func TestCrashCashoutBeatsDetonation(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	e, led, _ := newEngine(t, mock)
	led.fund("alice", 100)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindCrash, 100,
		map[string]any{"crash_at": 500.0})
	require.NoError(t, err)

	mock.Advance(time.Second).MustWait(ctx)

	step, err := e.Act(ctx, "chat:1", game.Action{Name: "cashout", Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, crash.TagCashout, step.Outcome.Tag)
	assert.Equal(t, int64(105), led.balance("alice"))
}

func TestTriviaPaysEachDistinctWinnerOnce(t *testing.T) {
	ctx := context.Background()
	e, led, sink := newEngine(t, quartz.NewReal())

	_, err := e.RequestSession(ctx, "chat:1", "asker", session.KindTrivia, 0,
		map[string]any{"question": "Capital of France?", "answers": []string{"paris"}})
	require.NoError(t, err)

	answer := func(actor, guess string) (*game.Step, error) {
		return e.Act(ctx, "chat:1", game.Action{
			Name:  "answer",
			Actor: actor,
			Data:  map[string]any{"guess": guess},
		})
	}

	_, err = answer("alice", "paris")
	require.NoError(t, err)
	_, err = answer("bob", "Paris!")
	require.NoError(t, err)
	_, err = answer("alice", "paris") // repeat, no second reward
	require.NoError(t, err)
	_, err = answer("carol", "london") // wrong
	require.NoError(t, err)

	assert.Equal(t, int64(trivia.DefaultRewardCredits), led.balance("alice"))
	assert.Equal(t, int64(trivia.DefaultRewardCredits), led.balance("bob"))
	assert.Equal(t, int64(0), led.balance("carol"))
	assert.Len(t, sink.byType(EventAwardPaid), 2)

	// the round stays open throughout
	require.NotNil(t, e.Session("chat:1"))
	assert.Equal(t, session.StateActive, e.Session("chat:1").State())
}

func TestTriviaAskerCannotAnswer(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t, quartz.NewReal())

	_, err := e.RequestSession(ctx, "chat:1", "asker", session.KindTrivia, 0,
		map[string]any{"question": "q", "answers": []string{"a"}})
	require.NoError(t, err)

	_, err = e.Act(ctx, "chat:1", game.Action{
		Name:  "answer",
		Actor: "asker",
		Data:  map[string]any{"guess": "a"},
	})
	assert.ErrorIs(t, err, game.ErrIneligible)
}

func TestTriviaPromptFlowOpensRound(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t, quartz.NewReal())

	require.NoError(t, e.OpenTriviaPrompt("asker", "chat:1"))
	assert.ErrorIs(t, e.OpenTriviaPrompt("asker", "chat:2"), trivia.ErrPromptPending)

	s, err := e.PostTrivia(ctx, "asker", map[string]any{
		"question": "Capital of France?",
		"answers":  []string{"paris"},
	})
	require.NoError(t, err)
	assert.Equal(t, "chat:1", s.Scope, "the round opens in the prompted scope")
	assert.Equal(t, session.StateActive, s.State())

	// the prompt is consumed
	_, err = e.PostTrivia(ctx, "asker", map[string]any{
		"question": "q",
		"answers":  []string{"a"},
	})
	assert.ErrorIs(t, err, trivia.ErrNoPrompt)
}

func TestPostTriviaWithoutPromptRejected(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t, quartz.NewReal())

	_, err := e.PostTrivia(ctx, "asker", map[string]any{
		"question": "q",
		"answers":  []string{"a"},
	})
	assert.ErrorIs(t, err, trivia.ErrNoPrompt)
}

func TestPostTriviaIntoBusyScopeKeepsPrompt(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newEngine(t, quartz.NewReal())
	led.fund("alice", 100)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
		map[string]any{"deck": noNaturalDeck()})
	require.NoError(t, err)

	require.NoError(t, e.OpenTriviaPrompt("asker", "chat:1"))
	params := map[string]any{"question": "q", "answers": []string{"a"}}

	_, err = e.PostTrivia(ctx, "asker", params)
	assert.ErrorIs(t, err, session.ErrBusy)

	// the scope frees up and the restored prompt still completes
	_, err = e.Cancel(ctx, "chat:1", "alice")
	require.NoError(t, err)

	s, err := e.PostTrivia(ctx, "asker", params)
	require.NoError(t, err)
	assert.Equal(t, "chat:1", s.Scope)
}

func TestAbandonTriviaPrompt(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t, quartz.NewReal())

	require.NoError(t, e.OpenTriviaPrompt("asker", "chat:1"))
	assert.True(t, e.AbandonTriviaPrompt("asker"))
	assert.False(t, e.AbandonTriviaPrompt("asker"))

	_, err := e.PostTrivia(ctx, "asker", map[string]any{
		"question": "q",
		"answers":  []string{"a"},
	})
	assert.ErrorIs(t, err, trivia.ErrNoPrompt)
}

func TestCancelRefundsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newEngine(t, quartz.NewReal())
	led.fund("alice", 100)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, 100,
		map[string]any{"deck": noNaturalDeck()})
	require.NoError(t, err)

	_, err = e.Cancel(ctx, "chat:1", "mallory")
	assert.ErrorIs(t, err, game.ErrIneligible)

	out, err := e.Cancel(ctx, "chat:1", "alice")
	require.NoError(t, err)
	assert.Equal(t, blackjack.TagCancelled, out.Tag)
	assert.Equal(t, int64(100), led.balance("alice"))
	assert.Nil(t, e.Session("chat:1"))
}

func TestUnknownKindRejected(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t, quartz.NewReal())

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.Kind("poker"), 100, nil)
	assert.ErrorIs(t, err, game.ErrUnknownKind)
}

func TestInvalidWagerRejectedBeforeLedger(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newEngine(t, quartz.NewReal())
	led.fund("alice", 1000)

	_, err := e.RequestSession(ctx, "chat:1", "alice", session.KindBlackjack, -5, nil)
	assert.ErrorIs(t, err, game.ErrInvalidWager)
	assert.Len(t, led.debits, 0)
}
