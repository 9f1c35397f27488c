package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRound_PrizeAt(t *testing.T) {
	r := &Round{Prizes: []int{3, 2, 1}}

	assert.Equal(t, 3, r.PrizeAt(1))
	assert.Equal(t, 2, r.PrizeAt(2))
	assert.Equal(t, 1, r.PrizeAt(3))
	assert.Equal(t, 0, r.PrizeAt(0))
	assert.Equal(t, 0, r.PrizeAt(4))
}

func TestRound_WinnerSlotsAndTotalPrizeCount(t *testing.T) {
	r := &Round{Prizes: []int{5, 3, 1}}
	assert.Equal(t, 3, r.WinnerSlots())
	assert.Equal(t, 9, r.TotalPrizeCount())
}

func TestRound_Extend_StopsAtBudget(t *testing.T) {
	r := &Round{Extensions: MaxExtensions - 1, EndsAt: time.Unix(0, 0)}
	next := time.Unix(100, 0)

	r.Extend(next)
	assert.Equal(t, MaxExtensions, r.Extensions)
	assert.Equal(t, next, r.EndsAt)
	assert.Equal(t, RoundStateExtended, r.State)

	again := time.Unix(200, 0)
	r.Extend(again)
	assert.Equal(t, MaxExtensions, r.Extensions, "extending past budget must not increment further")
	assert.Equal(t, next, r.EndsAt, "a rejected extension must not move the deadline")
}

func TestRound_IsOpen(t *testing.T) {
	cases := []struct {
		state RoundState
		want  bool
	}{
		{RoundStateScheduled, false},
		{RoundStateOpen, true},
		{RoundStateExtended, true},
		{RoundStateSettling, false},
		{RoundStateSettled, false},
	}
	for _, tc := range cases {
		r := &Round{State: tc.state}
		assert.Equal(t, tc.want, r.IsOpen(), "state=%s", tc.state)
	}
}

func TestRound_Settle(t *testing.T) {
	r := &Round{State: RoundStateSettling}
	at := time.Now()
	r.Settle(at)

	assert.Equal(t, RoundStateSettled, r.State)
	assert.Equal(t, at, *r.SettledAt)
}
