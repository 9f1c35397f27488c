package bidengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecomposeScore_RoundTripsWithCompositeEncoding(t *testing.T) {
	cases := []struct {
		amount     int64
		firstBidAt int64
	}{
		{1, 1_700_000_000},
		{250, 1_700_000_050},
		{999_999, 1_600_000_000},
	}

	for _, tc := range cases {
		score := tc.amount*amountScale + (maxTimestamp - tc.firstBidAt)
		gotAmount, gotFirstBidAt := decomposeScore(score)
		assert.Equal(t, tc.amount, gotAmount)
		assert.Equal(t, tc.firstBidAt, gotFirstBidAt)
	}
}

func TestDecomposeScore_HigherAmountWinsTieBreak(t *testing.T) {
	// Two bids at the same instant: whichever amount is larger must encode
	// to a larger score so ZRevRange ranks it first.
	now := int64(1_700_000_000)
	lower := int64(100)*amountScale + (maxTimestamp - now)
	higher := int64(101)*amountScale + (maxTimestamp - now)

	assert.Greater(t, higher, lower)
}
