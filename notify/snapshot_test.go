package notify

import (
	"testing"

	"auctionhouse/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBidSummaries_PreservesOrderAndFields(t *testing.T) {
	ranked := []*interfaces.RankedBid{
		{UserID: "u1", Amount: 500, Rank: 1, FirstBidAt: 1700000000},
		{UserID: "u2", Amount: 400, Rank: 2, FirstBidAt: 1700000050},
	}

	got := toBidSummaries(ranked)

	require.Len(t, got, 2)
	assert.Equal(t, BidSummary{UserID: "u1", Amount: 500, Rank: 1, FirstBidAt: 1700000000}, got[0])
	assert.Equal(t, BidSummary{UserID: "u2", Amount: 400, Rank: 2, FirstBidAt: 1700000050}, got[1])
}

func TestToBidSummaries_EmptyInputYieldsEmptySlice(t *testing.T) {
	got := toBidSummaries(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
