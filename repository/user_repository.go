package repository

import (
	"context"
	"fmt"

	"auctionhouse/domain/entities"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements interfaces.UserRepository against Postgres.
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a repository bound to q, either the pool or a
// unit of work's transaction.
func NewUserRepository(q Queryable) *UserRepository {
	return &UserRepository{q: q}
}

// GetByID retrieves a user along with their computed available balance.
// Available balance is derived from the transactions ledger's locked-amount
// aggregation rather than stored directly, per the locked-amount invariant.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*entities.User, error) {
	query := `
		SELECT id, balance, created_at, updated_at,
		       balance - COALESCE((
		           SELECT SUM(t.amount) FROM (
		               SELECT DISTINCT ON (auction_id) amount
		               FROM transactions
		               WHERE user_id = $1 AND status = 'active' AND type IN ('bid', 'bid_increase')
		               ORDER BY auction_id, created_at DESC
		           ) t
		       ), 0) AS available_balance
		FROM users
		WHERE id = $1
	`

	var u entities.User
	err := r.q.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Balance, &u.CreatedAt, &u.UpdatedAt, &u.AvailableBalance)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &u, nil
}

// Create upserts a user with the given initial balance, returning the
// resulting row. Idempotent: re-creating an existing user is a no-op that
// still returns the current row.
func (r *UserRepository) Create(ctx context.Context, userID string, initialBalance int64) (*entities.User, error) {
	query := `
		INSERT INTO users (id, balance)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, balance, created_at, updated_at
	`

	var u entities.User
	err := r.q.QueryRow(ctx, query, userID, initialBalance).Scan(&u.ID, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", userID, err)
	}
	u.AvailableBalance = u.Balance
	return &u, nil
}

// UpdateBalance sets a user's balance. Callers must hold the per-user mutex
// for the user id, since this call does not itself serialize concurrent
// writers.
func (r *UserRepository) UpdateBalance(ctx context.Context, userID string, newBalance int64) error {
	query := `UPDATE users SET balance = $1, updated_at = now() WHERE id = $2`
	result, err := r.q.Exec(ctx, query, newBalance, userID)
	if err != nil {
		return fmt.Errorf("failed to update balance for user %s: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}

// GetAll returns every known user, most recently created first.
func (r *UserRepository) GetAll(ctx context.Context) ([]*entities.User, error) {
	query := `SELECT id, balance, created_at, updated_at FROM users ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*entities.User
	for rows.Next() {
		var u entities.User
		if err := rows.Scan(&u.ID, &u.Balance, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.AvailableBalance = u.Balance
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
