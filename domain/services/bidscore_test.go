package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBidScoreService_CompositeScore_HigherAmountAlwaysWins(t *testing.T) {
	s := NewBidScoreService()

	// Two bids placed at wildly different times, but different amounts:
	// the larger amount must outscore the smaller one regardless of timing.
	lowEarly := s.CompositeScore(100, 1_000_000_000)
	highLate := s.CompositeScore(101, 2_000_000_000)

	assert.Greater(t, highLate, lowEarly)
}

func TestBidScoreService_CompositeScore_TieBreaksOnEarlierBid(t *testing.T) {
	s := NewBidScoreService()

	earlier := s.CompositeScore(500, 1_000_000_000)
	later := s.CompositeScore(500, 1_000_000_100)

	assert.Greater(t, earlier, later, "equal amounts must favor the earlier bid")
}

func TestBidScoreService_DecomposeScore_RoundTrips(t *testing.T) {
	s := NewBidScoreService()

	cases := []struct {
		amount     int64
		firstBidAt int64
	}{
		{1, 1_700_000_000},
		{500, 1_700_000_123},
		{1_000_000, 1_600_000_000},
	}

	for _, tc := range cases {
		score := s.CompositeScore(tc.amount, tc.firstBidAt)
		got := s.DecomposeScore(score, tc.firstBidAt)
		assert.Equal(t, tc.amount, got)
	}
}

func TestBidScoreService_ValidateBidAmount(t *testing.T) {
	s := NewBidScoreService()

	assert.NoError(t, s.ValidateBidAmount(200, 100))
	assert.Error(t, s.ValidateBidAmount(100, 100), "equal amount is not a strict improvement")
	assert.Error(t, s.ValidateBidAmount(50, 100), "lowering a bid is never allowed")
	assert.Error(t, s.ValidateBidAmount(0, 0))
	assert.Error(t, s.ValidateBidAmount(-10, 0))
}

func TestBidScoreService_IsTopN(t *testing.T) {
	s := NewBidScoreService()

	assert.True(t, s.IsTopN(1, 3))
	assert.True(t, s.IsTopN(3, 3))
	assert.False(t, s.IsTopN(4, 3))
	assert.False(t, s.IsTopN(0, 3))
}
