package interfaces

import (
	"context"

	"auctionhouse/domain/entities"
)

// BidEngine defines the interface for atomic bid admission against the fast
// store. A single call either admits the bid (updating the per-user and
// per-auction fast-store structures) or rejects it, with idempotent replay
// of the same idempotency key always returning the original outcome.
type BidEngine interface {
	// availableBalance must be read from the durable store under the
	// caller's per-user lock immediately before this call, per spec: the
	// read and the admission decision form one logical critical section.
	PlaceBid(ctx context.Context, auctionID, userID string, amount, availableBalance int64, idempotencyKey string) (*BidOutcome, error)
	TopBids(ctx context.Context, auctionID string, n int) ([]*RankedBid, error)
	UserBid(ctx context.Context, auctionID, userID string) (*RankedBid, error)
	// ClearAuction removes every fast-cache trace of an auction's bids,
	// called once settlement finishes.
	ClearAuction(ctx context.Context, auctionID string, userIDs []string) error
}

// BidOutcomeStatus enumerates the possible results of a bid admission.
type BidOutcomeStatus string

const (
	// BidOutcomeOK is an admitted bid that raised the bidder's standing amount.
	BidOutcomeOK BidOutcomeStatus = "ok"
	// BidOutcomeSame is a replay of the bidder's current standing amount;
	// admitted but with diff == 0.
	BidOutcomeSame BidOutcomeStatus = "same"
	// BidOutcomeCannotDecrease rejects a bid below the bidder's standing amount.
	BidOutcomeCannotDecrease BidOutcomeStatus = "cannot_decrease"
	// BidOutcomeInsufficientBalance rejects a bid the bidder cannot cover.
	BidOutcomeInsufficientBalance BidOutcomeStatus = "insufficient_balance"
	// BidOutcomeRoundClosed rejects a bid against a round that is no longer open.
	BidOutcomeRoundClosed BidOutcomeStatus = "round_closed"
)

// BidOutcome is the result of attempting to place a bid, mirroring the
// (code, amount, previousBet, diff, status) tuple cached in the idempotency
// slot.
type BidOutcome struct {
	Status         BidOutcomeStatus
	Idempotent     bool  // true if this outcome was replayed from a cached idempotency slot
	Amount         int64 // the bidder's standing amount after this call
	PreviousAmount int64 // the bidder's standing amount before this call
	Diff           int64 // amount charged by this call (0 for SAME/rejections)
	FirstBidAt     int64 // unix seconds of the user's first bid this round
	Rank           int   // 1-based rank within the auction after admission
}

// RankedBid is a decoded view of one entry in the fast store's ranked set.
type RankedBid struct {
	UserID     string
	Amount     int64
	FirstBidAt int64
	Rank       int
}

// Ledger defines the interface for the durable balance-locking ledger.
type Ledger interface {
	LockBid(ctx context.Context, opID, userID, auctionID string, roundIndex int, amount int64) error
	IncreaseLock(ctx context.Context, opID, userID, auctionID string, roundIndex int, newAmount int64) error
	SettleWin(ctx context.Context, opID, userID, auctionID string, roundIndex int, amount int64) error
	Refund(ctx context.Context, opID, userID, auctionID string, roundIndex int, amount int64) error
	// ReleaseLock transitions a losing bidder's standing lock out of ACTIVE
	// without writing a new ledger row: a lost bid never moved any
	// currency, so releasing it is a pure lock-release, not a settlement.
	ReleaseLock(ctx context.Context, userID, auctionID string) error
	LockedAmount(ctx context.Context, userID string) (int64, error)
}

// Scheduler defines the interface for durable, idempotent delayed work.
type Scheduler interface {
	ScheduleRoundStart(ctx context.Context, auctionID string, roundIndex int, runAt int64) error
	ScheduleRoundEnd(ctx context.Context, auctionID string, roundIndex int, runAt int64) error
	Reschedule(ctx context.Context, jobID string, runAtUnix int64) error
	GetJob(ctx context.Context, jobID string) (*entities.ScheduledJob, error)
}

// RoundProcessor defines the interface for driving the auction state machine.
type RoundProcessor interface {
	StartRound(ctx context.Context, auctionID string, roundIndex int) error
	EndRound(ctx context.Context, auctionID string, roundIndex int) (*entities.RoundResult, error)
	ExtendRound(ctx context.Context, auctionID string, roundIndex int) (bool, error)
}

// NotificationBus defines the interface for the real-time fan-out layer.
type NotificationBus interface {
	Subscribe(ctx context.Context, auctionID string) (<-chan []byte, func(), error)
	Nudge(auctionID string)
}
