package crash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"arcade-engine/internal/game"
	"arcade-engine/internal/session"
)

func TestCrashPoint(t *testing.T) {
	tests := []struct {
		name string
		u    float64
		want float64
	}{
		{"median roll", 0.5, 1.98},
		{"high roll detonates instantly", 0.99, 1.0},
		{"worst roll floors at one", 1.0, 1.0},
		{"tiny roll is capped", 0.00001, maxCrash},
		{"zero is capped", 0, maxCrash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CrashPoint(tt.u), 1e-9)
		})
	}
}

func TestCrashPointBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		u := rapid.Float64Range(0, 1).Draw(t, "u")
		point := CrashPoint(u)
		assert.GreaterOrEqual(t, point, 1.0)
		assert.LessOrEqual(t, point, maxCrash)
	})
}

func startSession(t *testing.T, r *Rule, crashAt float64) *session.Session {
	t.Helper()
	payload, outcome, err := r.Start("alice", 100, map[string]any{"crash_at": crashAt})
	require.NoError(t, err)
	require.Nil(t, outcome)

	s := session.New("chat:1", "alice", session.KindCrash, 100, payload)
	require.True(t, s.Activate())
	return s
}

func TestStartInstantCrash(t *testing.T) {
	r := New(nil)

	_, outcome, err := r.Start("alice", 100, map[string]any{"crash_at": 1.0})
	require.NoError(t, err)

	require.NotNil(t, outcome)
	assert.Equal(t, TagCrashed, outcome.Tag)
	assert.Equal(t, int64(0), outcome.Payout)
}

func TestStartRejectsBadCrashPoint(t *testing.T) {
	r := New(nil)

	_, _, err := r.Start("alice", 100, map[string]any{"crash_at": 0.5})
	assert.ErrorIs(t, err, game.ErrInvalidParams)
}

func TestTickClimbsAndDetonates(t *testing.T) {
	r := New(nil)
	s := startSession(t, r, 1.2)

	p := s.Payload.(*Payload)
	require.False(t, r.Tick(s))
	assert.InDelta(t, 1.05, p.Multiplier, 1e-9)

	require.False(t, r.Tick(s))
	assert.InDelta(t, 1.10, p.Multiplier, 1e-9)

	require.False(t, r.Tick(s))
	assert.InDelta(t, 1.15, p.Multiplier, 1e-9)

	// the detonating tick leaves the multiplier at its last safe value
	require.True(t, r.Tick(s))
	assert.InDelta(t, 1.15, p.Multiplier, 1e-9)
}

func TestCashoutRacingDetonationPaysLastSafeMultiplier(t *testing.T) {
	r := New(nil)
	s := startSession(t, r, 1.2)

	for !r.Tick(s) {
	}

	step, err := r.Act(s, game.Action{Name: "cashout", Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(115), step.Outcome.Payout)
}

func TestCashoutPaysCurrentMultiplier(t *testing.T) {
	r := New(nil)
	s := startSession(t, r, 500)

	s.Payload.(*Payload).Multiplier = 2.00
	step, err := r.Act(s, game.Action{Name: "cashout", Actor: "alice"})
	require.NoError(t, err)

	assert.True(t, step.Resolve)
	assert.Equal(t, TagCashout, step.Outcome.Tag)
	assert.Equal(t, int64(200), step.Outcome.Payout)
}

func TestCashoutAtStartReturnsStake(t *testing.T) {
	r := New(nil)
	s := startSession(t, r, 500)

	step, err := r.Act(s, game.Action{Name: "cashout", Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), step.Outcome.Payout)
}

func TestCashoutRejectsOtherActors(t *testing.T) {
	r := New(nil)
	s := startSession(t, r, 500)

	_, err := r.Act(s, game.Action{Name: "cashout", Actor: "mallory"})
	assert.ErrorIs(t, err, game.ErrIneligible)
}

func TestExpireLosesStake(t *testing.T) {
	r := New(nil)
	s := startSession(t, r, 500)

	outcome := r.Expire(s)
	assert.Equal(t, TagCrashed, outcome.Tag)
	assert.Equal(t, int64(0), outcome.Payout)
}

func TestCancelRefundsStake(t *testing.T) {
	r := New(nil)
	s := startSession(t, r, 500)

	outcome := r.Cancel(s)
	assert.Equal(t, TagCancelled, outcome.Tag)
	assert.Equal(t, int64(100), outcome.Payout)
}

func TestTickNeverExceedsCrashPointProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		crashAt := rapid.Float64Range(1.01, 50).Draw(t, "crashAt")
		r := New(nil)
		p := &Payload{Multiplier: 1.0, CrashAt: crashAt}
		s := session.New("chat:1", "alice", session.KindCrash, 100, p)

		for i := 0; i < 200; i++ {
			done := r.Tick(s)
			assert.Less(t, p.Multiplier, crashAt)
			if done {
				return
			}
		}
		t.Fatalf("round never detonated at crash point %v", crashAt)
	})
}
