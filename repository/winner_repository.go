package repository

import (
	"context"
	"fmt"

	"auctionhouse/domain/entities"
)

// WinnerRepository implements interfaces.WinnerRepository.
type WinnerRepository struct {
	q Queryable
}

// NewWinnerRepository creates a new winner repository.
func NewWinnerRepository(q Queryable) *WinnerRepository {
	return &WinnerRepository{q: q}
}

// SaveAll inserts every winner record from one round's settlement. Callers
// guard against duplicate settlement by checking GetByAuctionAndRound first
// (see round processor step 5); the unique primary key is a second line of
// defense against a racing duplicate insert.
func (r *WinnerRepository) SaveAll(ctx context.Context, winners []*entities.Winner) error {
	for _, w := range winners {
		query := `
			INSERT INTO winners (auction_id, round_index, place, user_id, amount, prize_gift_name, prize_count, transaction_op_id, settled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (auction_id, round_index, place) DO NOTHING
		`
		if _, err := r.q.Exec(ctx, query, w.AuctionID, w.RoundIndex, w.Place, w.UserID, w.Amount, w.PrizeGiftName, w.PrizeCount, w.TransactionOpID); err != nil {
			return fmt.Errorf("failed to save winner %s/%d/%d: %w", w.AuctionID, w.RoundIndex, w.Place, err)
		}
	}
	return nil
}

// GetByAuction returns every winner record for an auction across all rounds.
func (r *WinnerRepository) GetByAuction(ctx context.Context, auctionID string) ([]*entities.Winner, error) {
	query := `
		SELECT auction_id, round_index, place, user_id, amount, prize_gift_name, prize_count, transaction_op_id, settled_at
		FROM winners WHERE auction_id = $1 ORDER BY round_index, place
	`
	return r.scanRows(ctx, query, auctionID)
}

// GetByAuctionAndRound returns a single round's winner records, used to
// guard against re-settling an already-settled round.
func (r *WinnerRepository) GetByAuctionAndRound(ctx context.Context, auctionID string, roundIndex int) ([]*entities.Winner, error) {
	query := `
		SELECT auction_id, round_index, place, user_id, amount, prize_gift_name, prize_count, transaction_op_id, settled_at
		FROM winners WHERE auction_id = $1 AND round_index = $2 ORDER BY place
	`
	return r.scanRows(ctx, query, auctionID, roundIndex)
}

func (r *WinnerRepository) scanRows(ctx context.Context, query string, args ...any) ([]*entities.Winner, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query winners: %w", err)
	}
	defer rows.Close()

	var winners []*entities.Winner
	for rows.Next() {
		var w entities.Winner
		if err := rows.Scan(&w.AuctionID, &w.RoundIndex, &w.Place, &w.UserID, &w.Amount, &w.PrizeGiftName, &w.PrizeCount, &w.TransactionOpID, &w.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, &w)
	}
	return winners, rows.Err()
}
