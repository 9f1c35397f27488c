// Package ledger wraps the durable transaction repository with the
// deterministic-op-id write patterns the bid and settlement paths need,
// implementing interfaces.Ledger.
package ledger

import (
	"context"
	"fmt"

	"auctionhouse/domain/entities"
	"auctionhouse/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// Ledger implements interfaces.Ledger against the durable transaction
// repository. Every write upserts by deterministic op-id, so a retried call
// with the same id is a no-op that still restores two-store coherence.
type Ledger struct {
	transactions interfaces.TransactionRepository
}

// New creates a new Ledger bound to a transaction repository.
func New(transactions interfaces.TransactionRepository) *Ledger {
	return &Ledger{transactions: transactions}
}

// LockBid records a bidder's first lock on an auction.
func (l *Ledger) LockBid(ctx context.Context, opID, userID, auctionID string, roundIndex int, amount int64) error {
	return l.upsertLock(ctx, opID, userID, auctionID, roundIndex, amount, entities.TransactionTypeBid)
}

// IncreaseLock supersedes a bidder's prior lock with a raised amount. The
// prior row is marked superseded so LockedAmount's latest-per-auction
// aggregation never double-counts across the increase.
func (l *Ledger) IncreaseLock(ctx context.Context, opID, userID, auctionID string, roundIndex int, newAmount int64) error {
	if err := l.transactions.SupersedeActiveLock(ctx, userID, auctionID); err != nil {
		return fmt.Errorf("ledger: failed to supersede prior lock: %w", err)
	}
	return l.upsertLock(ctx, opID, userID, auctionID, roundIndex, newAmount, entities.TransactionTypeBidIncrease)
}

func (l *Ledger) upsertLock(ctx context.Context, opID, userID, auctionID string, roundIndex int, amount int64, txType entities.TransactionType) error {
	tx := &entities.Transaction{
		OpID:       opID,
		UserID:     userID,
		AuctionID:  auctionID,
		RoundIndex: roundIndex,
		Type:       txType,
		Status:     entities.TransactionStatusActive,
		Amount:     amount,
	}
	if err := l.transactions.Upsert(ctx, tx); err != nil {
		return fmt.Errorf("ledger: failed to upsert lock %s: %w", opID, err)
	}
	log.WithFields(log.Fields{
		"opId":      opID,
		"userId":    userID,
		"auctionId": auctionID,
		"amount":    amount,
		"type":      txType,
	}).Debug("locked bid amount")
	return nil
}

// SettleWin records a winning bidder's final debit and resolves their
// standing locks, keyed by a deterministic op-id
// ({auctionId}:{userId}:win:{round}:place{p}) so re-running settlement is a
// no-op.
func (l *Ledger) SettleWin(ctx context.Context, opID, userID, auctionID string, roundIndex int, amount int64) error {
	tx := &entities.Transaction{
		OpID:       opID,
		UserID:     userID,
		AuctionID:  auctionID,
		RoundIndex: roundIndex,
		Type:       entities.TransactionTypeWin,
		Status:     entities.TransactionStatusSettled,
		Amount:     amount,
	}
	if err := l.transactions.Upsert(ctx, tx); err != nil {
		return fmt.Errorf("ledger: failed to upsert win %s: %w", opID, err)
	}
	if err := l.transactions.SupersedeActiveLock(ctx, userID, auctionID); err != nil {
		return fmt.Errorf("ledger: failed to resolve winner's lock: %w", err)
	}
	return nil
}

// Refund records the auction author's unclaimed-prize or no-bidders refund.
// This is the only Refund-type row the ledger ever writes: a losing bidder's
// lock is released via ReleaseLock instead, since a lost bid never actually
// spent anything. amount here is the refunded gift count, not stars.
func (l *Ledger) Refund(ctx context.Context, opID, userID, auctionID string, roundIndex int, amount int64) error {
	tx := &entities.Transaction{
		OpID:       opID,
		UserID:     userID,
		AuctionID:  auctionID,
		RoundIndex: roundIndex,
		Type:       entities.TransactionTypeRefund,
		Status:     entities.TransactionStatusSettled,
		Amount:     amount,
	}
	if err := l.transactions.Upsert(ctx, tx); err != nil {
		return fmt.Errorf("ledger: failed to upsert refund %s: %w", opID, err)
	}
	return nil
}

// ReleaseLock transitions a losing bidder's standing lock out of ACTIVE with
// no new ledger row: the locked amount was never actually spent, so there is
// nothing to settle, only a lock to release.
func (l *Ledger) ReleaseLock(ctx context.Context, userID, auctionID string) error {
	if err := l.transactions.SupersedeActiveLock(ctx, userID, auctionID); err != nil {
		return fmt.Errorf("ledger: failed to release lock: %w", err)
	}
	return nil
}

// LockedAmount returns a user's total locked amount, aggregated on the
// durable store per I1 — never re-derived from the fast cache.
func (l *Ledger) LockedAmount(ctx context.Context, userID string) (int64, error) {
	locked, err := l.transactions.LockedAmount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("ledger: failed to compute locked amount: %w", err)
	}
	return locked, nil
}
