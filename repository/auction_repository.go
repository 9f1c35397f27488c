package repository

import (
	"context"
	"fmt"

	"auctionhouse/domain/entities"

	"github.com/jackc/pgx/v5"
)

// AuctionRepository implements interfaces.AuctionRepository.
type AuctionRepository struct {
	q Queryable
}

// NewAuctionRepository creates a new auction repository.
func NewAuctionRepository(q Queryable) *AuctionRepository {
	return &AuctionRepository{q: q}
}

const auctionColumns = `id, title, author_id, prize_gift_name, state, total_rounds, current_round, round_starts_at, round_ends_at, created_at, completed_at`

func (r *AuctionRepository) scanOne(row pgx.Row) (*entities.Auction, error) {
	var a entities.Auction
	err := row.Scan(&a.ID, &a.Title, &a.AuthorID, &a.PrizeGiftName, &a.State, &a.TotalRounds, &a.CurrentRound,
		&a.RoundStartsAt, &a.RoundEndsAt, &a.CreatedAt, &a.CompletedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new auction, starting in the pending (scheduled) state.
func (r *AuctionRepository) Create(ctx context.Context, a *entities.Auction) error {
	query := `
		INSERT INTO auctions (id, title, author_id, prize_gift_name, state, total_rounds, current_round, round_starts_at, round_ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING created_at
	`
	return r.q.QueryRow(ctx, query, a.ID, a.Title, a.AuthorID, a.PrizeGiftName, a.State, a.TotalRounds,
		a.CurrentRound, a.RoundStartsAt, a.RoundEndsAt).Scan(&a.CreatedAt)
}

// Delete removes an auction document, used to roll back a failed
// createAuction after the gift debit has already been undone.
func (r *AuctionRepository) Delete(ctx context.Context, auctionID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM auctions WHERE id = $1`, auctionID)
	if err != nil {
		return fmt.Errorf("failed to delete auction %s: %w", auctionID, err)
	}
	return nil
}

// GetByID retrieves an auction without locking its row.
func (r *AuctionRepository) GetByID(ctx context.Context, auctionID string) (*entities.Auction, error) {
	a, err := r.scanOne(r.q.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, auctionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// GetForUpdate locks the auction row for the duration of the caller's
// transaction, used by the round processor's conditional state transitions
// so that two concurrent end-round fires cannot both observe ACTIVE.
func (r *AuctionRepository) GetForUpdate(ctx context.Context, auctionID string) (*entities.Auction, error) {
	a, err := r.scanOne(r.q.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR UPDATE`, auctionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get auction %s for update: %w", auctionID, err)
	}
	return a, nil
}

// Update persists an auction's current state and round window.
func (r *AuctionRepository) Update(ctx context.Context, a *entities.Auction) error {
	query := `
		UPDATE auctions SET
			state = $1, current_round = $2, round_starts_at = $3, round_ends_at = $4, completed_at = $5
		WHERE id = $6
	`
	result, err := r.q.Exec(ctx, query, a.State, a.CurrentRound, a.RoundStartsAt, a.RoundEndsAt, a.CompletedAt, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update auction %s: %w", a.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("auction %s not found", a.ID)
	}
	return nil
}

// GetActive returns every auction currently accepting bids.
func (r *AuctionRepository) GetActive(ctx context.Context) ([]*entities.Auction, error) {
	rows, err := r.q.Query(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE state = 'active' ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*entities.Auction
	for rows.Next() {
		a, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}
