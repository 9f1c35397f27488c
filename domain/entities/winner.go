package entities

import "time"

// PlaceRefund is the sentinel Place value for a round's refund-to-author
// record, used when a round draws no bidders or has unclaimed prize slots.
// It never carries a winning bidder, only the author receiving back gifts.
const PlaceRefund = 0

// Winner records one place in one round's settlement: the bidder who
// finished at that place, the stars amount debited, and the prize gift
// count transferred. A Place of PlaceRefund instead records gifts returned
// to the auction's author for a round with no or insufficient bidders.
type Winner struct {
	AuctionID       string    `db:"auction_id"`
	RoundIndex      int       `db:"round_index"`
	Place           int       `db:"place"`
	UserID          string    `db:"user_id"`
	Amount          int64     `db:"amount"`
	PrizeGiftName   string    `db:"prize_gift_name"`
	PrizeCount      int64     `db:"prize_count"`
	TransactionOpID string    `db:"transaction_op_id"`
	SettledAt       time.Time `db:"settled_at"`
}

// RoundResult is the outcome of settling one round, handed back to the
// caller so it can drive notifications and prize transfer without a second
// round-trip to the store.
type RoundResult struct {
	AuctionID  string
	RoundIndex int
	Winners    []*Winner
	// Refunded holds the user IDs whose locked bid was released because they
	// did not finish in the top N for this round.
	Refunded []string
}
