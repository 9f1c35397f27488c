package interfaces

import (
	"context"
	"time"

	"auctionhouse/domain/entities"
	"auctionhouse/events"
)

// UserRepository defines the interface for user data access in the durable store.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*entities.User, error)
	Create(ctx context.Context, userID string, initialBalance int64) (*entities.User, error)
	UpdateBalance(ctx context.Context, userID string, newBalance int64) error
	GetAll(ctx context.Context) ([]*entities.User, error)
}

// GiftRepository defines the interface for per-user gift inventory, debited
// from an auction's author at creation and credited to round winners at
// settlement.
type GiftRepository interface {
	GetHolding(ctx context.Context, userID, giftName string) (*entities.GiftLot, error)
	ListHoldings(ctx context.Context, userID string) ([]*entities.GiftLot, error)
	// AdjustHolding applies delta to the user's count of giftName, creating
	// the row if absent. A negative delta that would drive the count below
	// zero returns an error and leaves the row unchanged.
	AdjustHolding(ctx context.Context, userID, giftName string, delta int64) error
}

// BalanceHistoryRepository defines the interface for balance audit history.
type BalanceHistoryRepository interface {
	Record(ctx context.Context, history *entities.BalanceHistory) error
	GetByUser(ctx context.Context, userID string, limit int) ([]*entities.BalanceHistory, error)
	GetByDateRange(ctx context.Context, userID string, from, to time.Time) ([]*entities.BalanceHistory, error)
}

// TransactionRepository defines the interface for the ledger's durable store.
type TransactionRepository interface {
	// Upsert idempotently inserts or refreshes a ledger row keyed by OpID.
	Upsert(ctx context.Context, tx *entities.Transaction) error

	// GetByOpID retrieves a transaction by its deterministic operation id.
	GetByOpID(ctx context.Context, opID string) (*entities.Transaction, error)

	// LockedAmount sums the active lock amount for a user across all
	// auctions, taking the latest-by-created-at active lock row per auction.
	LockedAmount(ctx context.Context, userID string) (int64, error)

	// SupersedeActiveLock marks a user's active lock on an auction as
	// superseded (used when a bid increase or settlement replaces it).
	SupersedeActiveLock(ctx context.Context, userID, auctionID string) error

	// GetActiveLocksByAuction returns all currently-active lock rows for an
	// auction, used by the round processor to know who to refund.
	GetActiveLocksByAuction(ctx context.Context, auctionID string) ([]*entities.Transaction, error)
}

// AuctionRepository defines the interface for auction metadata.
type AuctionRepository interface {
	Create(ctx context.Context, auction *entities.Auction) error
	Delete(ctx context.Context, auctionID string) error
	GetByID(ctx context.Context, auctionID string) (*entities.Auction, error)
	// GetForUpdate locks the auction row (SELECT ... FOR UPDATE) for the
	// duration of the caller's transaction, used by the round processor's
	// conditional state transitions.
	GetForUpdate(ctx context.Context, auctionID string) (*entities.Auction, error)
	Update(ctx context.Context, auction *entities.Auction) error
	GetActive(ctx context.Context) ([]*entities.Auction, error)
}

// RoundRepository defines the interface for per-round bookkeeping.
type RoundRepository interface {
	Create(ctx context.Context, round *entities.Round) error
	GetByAuctionAndIndex(ctx context.Context, auctionID string, roundIndex int) (*entities.Round, error)
	Update(ctx context.Context, round *entities.Round) error
}

// WinnerRepository defines the interface for settlement results.
type WinnerRepository interface {
	SaveAll(ctx context.Context, winners []*entities.Winner) error
	GetByAuction(ctx context.Context, auctionID string) ([]*entities.Winner, error)
	GetByAuctionAndRound(ctx context.Context, auctionID string, roundIndex int) ([]*entities.Winner, error)
}

// ScheduledJobRepository defines the interface for the durable job table
// backing the Scheduler. Jobs are claimed with SELECT ... FOR UPDATE SKIP
// LOCKED so multiple worker processes can safely race for work.
type ScheduledJobRepository interface {
	Schedule(ctx context.Context, jobID, jobType, payload string, runAt time.Time) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*entities.ScheduledJob, error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, errMsg string) error
	GetNextRunAt(ctx context.Context) (*time.Time, error)
	GetByID(ctx context.Context, jobID string) (*entities.ScheduledJob, error)
	Reschedule(ctx context.Context, jobID string, runAt time.Time) error
}

// EventPublisher defines the interface for publishing domain events onto the
// durable audit bus.
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events published during a unit of
// work's transaction and only forwards them to the real publisher once the
// transaction has committed, so a rolled-back transaction never leaks
// events for writes that never happened.
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}
