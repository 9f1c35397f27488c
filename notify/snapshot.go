package notify

import "auctionhouse/domain/interfaces"

// BidSummary is the public view of one standing bid in a snapshot.
type BidSummary struct {
	UserID     string `json:"userId"`
	Amount     int64  `json:"amount"`
	Rank       int    `json:"rank"`
	FirstBidAt int64  `json:"firstBidAt"`
}

// AuctionSummary is one auction's entry in the all-auctions snapshot.
type AuctionSummary struct {
	AuctionID    string      `json:"auctionId"`
	State        string      `json:"state"`
	CurrentRound int         `json:"currentRound"`
	RoundEndsAt  *int64      `json:"roundEndsAt,omitempty"`
	TopBid       *BidSummary `json:"topBid,omitempty"`
}

// AllAuctionsSnapshot is the periodic composite published on the
// all-auctions channel.
type AllAuctionsSnapshot struct {
	Auctions    []AuctionSummary `json:"auctions"`
	GeneratedAt int64            `json:"generatedAt"`
}

// AuctionSnapshot is the periodic composite published on one auction's
// per-auction channel.
type AuctionSnapshot struct {
	AuctionID    string       `json:"auctionId"`
	State        string       `json:"state"`
	CurrentRound int          `json:"currentRound"`
	RoundEndsAt  *int64       `json:"roundEndsAt,omitempty"`
	Bids         []BidSummary `json:"bids"`
	GeneratedAt  int64        `json:"generatedAt"`
}

func toBidSummaries(ranked []*interfaces.RankedBid) []BidSummary {
	out := make([]BidSummary, 0, len(ranked))
	for _, rb := range ranked {
		out = append(out, BidSummary{UserID: rb.UserID, Amount: rb.Amount, Rank: rb.Rank, FirstBidAt: rb.FirstBidAt})
	}
	return out
}
