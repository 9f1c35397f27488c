package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auctionhouse/domain/entities"
)

// BalanceHistoryRepository implements interfaces.BalanceHistoryRepository.
type BalanceHistoryRepository struct {
	q Queryable
}

// NewBalanceHistoryRepository creates a new balance history repository.
func NewBalanceHistoryRepository(q Queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: q}
}

// Record appends one balance history row.
func (r *BalanceHistoryRepository) Record(ctx context.Context, h *entities.BalanceHistory) error {
	metadata, err := json.Marshal(h.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal balance history metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
			(user_id, balance_before, balance_after, change_amount, transaction_type, metadata, related_id, related_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id, created_at
	`
	return r.q.QueryRow(ctx, query,
		h.UserID, h.BalanceBefore, h.BalanceAfter, h.ChangeAmount, h.TransactionType,
		metadata, h.RelatedID, h.RelatedType,
	).Scan(&h.ID, &h.CreatedAt)
}

// GetByUser returns a user's most recent balance history rows.
func (r *BalanceHistoryRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, user_id, balance_before, balance_after, change_amount, transaction_type, metadata, related_id, related_type, created_at
		FROM balance_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.scanRows(ctx, query, userID, limit)
}

// GetByDateRange returns a user's balance history rows within [from, to].
func (r *BalanceHistoryRepository) GetByDateRange(ctx context.Context, userID string, from, to time.Time) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, user_id, balance_before, balance_after, change_amount, transaction_type, metadata, related_id, related_type, created_at
		FROM balance_history
		WHERE user_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
	`
	return r.scanRows(ctx, query, userID, from, to)
}

func (r *BalanceHistoryRepository) scanRows(ctx context.Context, query string, args ...any) ([]*entities.BalanceHistory, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	defer rows.Close()

	var results []*entities.BalanceHistory
	for rows.Next() {
		var h entities.BalanceHistory
		var metadata []byte
		if err := rows.Scan(&h.ID, &h.UserID, &h.BalanceBefore, &h.BalanceAfter, &h.ChangeAmount,
			&h.TransactionType, &metadata, &h.RelatedID, &h.RelatedType, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance history row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &h.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal balance history metadata: %w", err)
			}
		}
		results = append(results, &h)
	}
	return results, rows.Err()
}
