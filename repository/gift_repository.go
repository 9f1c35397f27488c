package repository

import (
	"context"
	"fmt"

	"auctionhouse/domain/entities"

	"github.com/jackc/pgx/v5"
)

// GiftRepository implements interfaces.GiftRepository against Postgres.
type GiftRepository struct {
	q Queryable
}

// NewGiftRepository creates a new gift repository.
func NewGiftRepository(q Queryable) *GiftRepository {
	return &GiftRepository{q: q}
}

// GetHolding returns a user's holding of a named gift, or a zero-count lot
// if the user has never held that gift.
func (r *GiftRepository) GetHolding(ctx context.Context, userID, giftName string) (*entities.GiftLot, error) {
	query := `SELECT gift_name, count FROM gift_holdings WHERE user_id = $1 AND gift_name = $2`

	var lot entities.GiftLot
	err := r.q.QueryRow(ctx, query, userID, giftName).Scan(&lot.Name, &lot.Count)
	if err == pgx.ErrNoRows {
		return &entities.GiftLot{Name: giftName, Count: 0}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gift holding %s/%s: %w", userID, giftName, err)
	}
	return &lot, nil
}

// ListHoldings returns every non-zero gift lot a user owns.
func (r *GiftRepository) ListHoldings(ctx context.Context, userID string) ([]*entities.GiftLot, error) {
	query := `SELECT gift_name, count FROM gift_holdings WHERE user_id = $1 AND count > 0 ORDER BY gift_name`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gift holdings for %s: %w", userID, err)
	}
	defer rows.Close()

	var lots []*entities.GiftLot
	for rows.Next() {
		var lot entities.GiftLot
		if err := rows.Scan(&lot.Name, &lot.Count); err != nil {
			return nil, fmt.Errorf("failed to scan gift holding: %w", err)
		}
		lots = append(lots, &lot)
	}
	return lots, rows.Err()
}

// AdjustHolding applies delta to a user's count of giftName. The check
// constraint on gift_holdings.count rejects any update that would drive the
// balance negative, surfacing as a constraint-violation error.
func (r *GiftRepository) AdjustHolding(ctx context.Context, userID, giftName string, delta int64) error {
	query := `
		INSERT INTO gift_holdings (user_id, gift_name, count)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, gift_name) DO UPDATE SET count = gift_holdings.count + EXCLUDED.count
	`
	_, err := r.q.Exec(ctx, query, userID, giftName, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust gift holding %s/%s by %d: %w", userID, giftName, delta, err)
	}
	return nil
}
