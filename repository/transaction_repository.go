package repository

import (
	"context"
	"fmt"

	"auctionhouse/domain/entities"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements interfaces.TransactionRepository, the
// durable ledger of locked/settled bid amounts. Every write is an upsert by
// deterministic op-id so replays under retry are safe.
type TransactionRepository struct {
	q Queryable
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(q Queryable) *TransactionRepository {
	return &TransactionRepository{q: q}
}

// Upsert idempotently inserts or refreshes a ledger row keyed by OpID. A
// retried write with the same op-id and same fields is a no-op; a retried
// write that changes status (e.g. active -> settled) advances it.
func (r *TransactionRepository) Upsert(ctx context.Context, tx *entities.Transaction) error {
	query := `
		INSERT INTO transactions (op_id, user_id, auction_id, round_index, type, status, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (op_id) DO UPDATE SET
			status = EXCLUDED.status,
			amount = EXCLUDED.amount,
			updated_at = now()
		RETURNING created_at, updated_at
	`
	return r.q.QueryRow(ctx, query,
		tx.OpID, tx.UserID, tx.AuctionID, tx.RoundIndex, tx.Type, tx.Status, tx.Amount,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
}

// GetByOpID retrieves a transaction by its deterministic operation id.
func (r *TransactionRepository) GetByOpID(ctx context.Context, opID string) (*entities.Transaction, error) {
	query := `
		SELECT op_id, user_id, auction_id, round_index, type, status, amount, created_at, updated_at
		FROM transactions WHERE op_id = $1
	`
	var t entities.Transaction
	err := r.q.QueryRow(ctx, query, opID).Scan(
		&t.OpID, &t.UserID, &t.AuctionID, &t.RoundIndex, &t.Type, &t.Status, &t.Amount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", opID, err)
	}
	return &t, nil
}

// LockedAmount sums a user's locked amount across auctions, per I1: for each
// auction, take only the latest active BET/BET_INCREASE row so an increase
// never double-counts against its predecessor.
func (r *TransactionRepository) LockedAmount(ctx context.Context, userID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM (
			SELECT DISTINCT ON (auction_id) amount
			FROM transactions
			WHERE user_id = $1 AND status = 'active' AND type IN ('bid', 'bid_increase')
			ORDER BY auction_id, created_at DESC
		) latest
	`
	var locked int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&locked); err != nil {
		return 0, fmt.Errorf("failed to compute locked amount for %s: %w", userID, err)
	}
	return locked, nil
}

// SupersedeActiveLock marks a user's active lock rows on an auction as
// superseded, used when a bid increase or settlement replaces the standing
// lock with a new row.
func (r *TransactionRepository) SupersedeActiveLock(ctx context.Context, userID, auctionID string) error {
	query := `
		UPDATE transactions
		SET status = 'superseded', updated_at = now()
		WHERE user_id = $1 AND auction_id = $2 AND status = 'active' AND type IN ('bid', 'bid_increase')
	`
	_, err := r.q.Exec(ctx, query, userID, auctionID)
	if err != nil {
		return fmt.Errorf("failed to supersede lock for %s/%s: %w", userID, auctionID, err)
	}
	return nil
}

// GetActiveLocksByAuction returns every currently-active lock row for an
// auction, used by the round processor to determine who to refund at
// settlement.
func (r *TransactionRepository) GetActiveLocksByAuction(ctx context.Context, auctionID string) ([]*entities.Transaction, error) {
	query := `
		SELECT op_id, user_id, auction_id, round_index, type, status, amount, created_at, updated_at
		FROM transactions
		WHERE auction_id = $1 AND status = 'active' AND type IN ('bid', 'bid_increase')
		ORDER BY user_id
	`
	rows, err := r.q.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active locks for %s: %w", auctionID, err)
	}
	defer rows.Close()

	var results []*entities.Transaction
	for rows.Next() {
		var t entities.Transaction
		if err := rows.Scan(&t.OpID, &t.UserID, &t.AuctionID, &t.RoundIndex, &t.Type, &t.Status, &t.Amount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		results = append(results, &t)
	}
	return results, rows.Err()
}
