package roulette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade-engine/internal/game"
	"arcade-engine/internal/session"
)

func startSession(t *testing.T, bet string) (*Rule, *session.Session) {
	t.Helper()
	r := New(nil)
	payload, outcome, err := r.Start("alice", 100, map[string]any{"bet": bet})
	require.NoError(t, err)
	require.Nil(t, outcome)

	s := session.New("chat:1", "alice", session.KindRoulette, 100, payload)
	require.True(t, s.Activate())
	return r, s
}

func spin(t *testing.T, r *Rule, s *session.Session, pocket int) game.Outcome {
	t.Helper()
	step, err := r.Act(s, game.Action{
		Name:  "spin",
		Actor: "alice",
		Data:  map[string]any{"pocket": pocket},
	})
	require.NoError(t, err)
	require.True(t, step.Resolve)
	return step.Outcome
}

func TestSpinOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		bet    string
		pocket int
		tag    string
		payout int64
	}{
		{"straight hit pays 36x", "17", 17, TagWin, 3600},
		{"straight miss", "17", 18, TagLose, 0},
		{"straight zero hit", "0", 0, TagWin, 3600},
		{"red hit pays 2x", "red", 32, TagWin, 200},
		{"red miss on black", "red", 17, TagLose, 0},
		{"black hit", "black", 17, TagWin, 200},
		{"zero loses color bets", "red", 0, TagLose, 0},
		{"even hit", "even", 18, TagWin, 200},
		{"odd hit", "odd", 19, TagWin, 200},
		{"zero loses parity bets", "even", 0, TagLose, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, s := startSession(t, tt.bet)
			outcome := spin(t, r, s, tt.pocket)
			assert.Equal(t, tt.tag, outcome.Tag)
			assert.Equal(t, tt.payout, outcome.Payout)
		})
	}
}

func TestColor(t *testing.T) {
	assert.Equal(t, "green", Color(0))
	assert.Equal(t, "red", Color(1))
	assert.Equal(t, "black", Color(2))
	assert.Equal(t, "red", Color(36))
	assert.Equal(t, "black", Color(35))
}

func TestStartRejectsBadBets(t *testing.T) {
	r := New(nil)
	for _, bet := range []string{"", "37", "-1", "purple", "1.5"} {
		_, _, err := r.Start("alice", 100, map[string]any{"bet": bet})
		assert.ErrorIs(t, err, game.ErrInvalidParams, "bet %q", bet)
	}
}

func TestSpinRejectsOtherActors(t *testing.T) {
	r, s := startSession(t, "red")
	_, err := r.Act(s, game.Action{Name: "spin", Actor: "mallory"})
	assert.ErrorIs(t, err, game.ErrIneligible)
}

func TestSpinRejectsBadPocket(t *testing.T) {
	r, s := startSession(t, "red")
	_, err := r.Act(s, game.Action{
		Name:  "spin",
		Actor: "alice",
		Data:  map[string]any{"pocket": 37},
	})
	assert.ErrorIs(t, err, game.ErrInvalidParams)
}

func TestExpireRefundsUnspunBet(t *testing.T) {
	r, s := startSession(t, "red")
	outcome := r.Expire(s)
	assert.Equal(t, TagExpired, outcome.Tag)
	assert.Equal(t, int64(100), outcome.Payout)
}
