package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuction_CanAcceptBids(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ends := now.Add(time.Minute)

	cases := []struct {
		name string
		a    Auction
		want bool
	}{
		{"active with time left", Auction{State: AuctionStateActive, RoundEndsAt: &ends}, true},
		{"active but window passed", Auction{State: AuctionStateActive, RoundEndsAt: &now}, false},
		{"settling", Auction{State: AuctionStateSettling, RoundEndsAt: &ends}, false},
		{"scheduled", Auction{State: AuctionStateScheduled, RoundEndsAt: &ends}, false},
		{"active with nil window", Auction{State: AuctionStateActive}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.CanAcceptBids(now))
		})
	}
}

func TestAuction_StartFirstRound(t *testing.T) {
	a := &Auction{State: AuctionStateScheduled, CurrentRound: CurrentRoundPending}
	starts := time.Now()
	ends := starts.Add(time.Hour)

	a.StartFirstRound(starts, ends)

	require.Equal(t, AuctionStateActive, a.State)
	assert.Equal(t, 0, a.CurrentRound)
	assert.Equal(t, starts, *a.RoundStartsAt)
	assert.Equal(t, ends, *a.RoundEndsAt)
}

func TestAuction_AdvanceRound(t *testing.T) {
	a := &Auction{State: AuctionStateSettling, CurrentRound: CurrentRoundSettling}
	a.CurrentRound = 2 // pretend round 2 just settled
	starts := time.Now()
	ends := starts.Add(time.Hour)

	a.AdvanceRound(starts, ends)

	assert.Equal(t, AuctionStateActive, a.State)
	assert.Equal(t, 3, a.CurrentRound)
}

func TestAuction_EnterSettling(t *testing.T) {
	a := &Auction{State: AuctionStateActive, CurrentRound: 1}
	a.EnterSettling()

	assert.Equal(t, AuctionStateSettling, a.State)
	assert.Equal(t, CurrentRoundSettling, a.CurrentRound)
}

func TestAuction_HasMoreRounds(t *testing.T) {
	a := &Auction{TotalRounds: 3, CurrentRound: 2}
	assert.True(t, a.HasMoreRounds())

	a.CurrentRound = 3
	assert.False(t, a.HasMoreRounds())
}

func TestAuction_Extend_OnlyPushesForward(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &Auction{RoundEndsAt: &base}

	earlier := base.Add(-time.Minute)
	a.Extend(earlier)
	assert.Equal(t, base, *a.RoundEndsAt, "extend must never move the deadline backward")

	later := base.Add(time.Minute)
	a.Extend(later)
	assert.Equal(t, later, *a.RoundEndsAt)
}

func TestAuction_Cancel_IsTerminalOnce(t *testing.T) {
	a := &Auction{State: AuctionStateActive}
	a.Cancel()
	assert.Equal(t, AuctionStateCancelled, a.State)

	a.State = AuctionStateCompleted
	a.Cancel()
	assert.Equal(t, AuctionStateCompleted, a.State, "cancel on a terminal auction is a no-op")
}

func TestAuction_RemainingInRound(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := &Auction{RoundEndsAt: nil}
	assert.Equal(t, time.Duration(0), a.RemainingInRound(now))

	future := now.Add(30 * time.Second)
	a = &Auction{RoundEndsAt: &future}
	assert.Equal(t, 30*time.Second, a.RemainingInRound(now))

	past := now.Add(-30 * time.Second)
	a = &Auction{RoundEndsAt: &past}
	assert.Equal(t, time.Duration(0), a.RemainingInRound(now))
}
