package repository

import (
	"context"
	"fmt"

	"auctionhouse/domain/entities"

	"github.com/jackc/pgx/v5"
)

// RoundRepository implements interfaces.RoundRepository.
type RoundRepository struct {
	q Queryable
}

// NewRoundRepository creates a new round repository.
func NewRoundRepository(q Queryable) *RoundRepository {
	return &RoundRepository{q: q}
}

const roundColumns = `auction_id, round_index, prize_gift_name, prizes, duration_seconds, state, starts_at, ends_at, extensions, settled_at`

func scanRound(row pgx.Row) (*entities.Round, error) {
	var rd entities.Round
	var prizes []int32
	err := row.Scan(&rd.AuctionID, &rd.RoundIndex, &rd.PrizeGiftName, &prizes, &rd.DurationSeconds, &rd.State,
		&rd.StartsAt, &rd.EndsAt, &rd.Extensions, &rd.SettledAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rd.Prizes = make([]int, len(prizes))
	for i, p := range prizes {
		rd.Prizes[i] = int(p)
	}
	return &rd, nil
}

// Create inserts a new round definition.
func (r *RoundRepository) Create(ctx context.Context, rd *entities.Round) error {
	query := `
		INSERT INTO rounds (auction_id, round_index, prize_gift_name, prizes, duration_seconds, state, starts_at, ends_at, extensions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.q.Exec(ctx, query, rd.AuctionID, rd.RoundIndex, rd.PrizeGiftName, intSliceToPG(rd.Prizes),
		rd.DurationSeconds, rd.State, rd.StartsAt, rd.EndsAt, rd.Extensions)
	if err != nil {
		return fmt.Errorf("failed to create round %s/%d: %w", rd.AuctionID, rd.RoundIndex, err)
	}
	return nil
}

// GetByAuctionAndIndex retrieves one round of an auction.
func (r *RoundRepository) GetByAuctionAndIndex(ctx context.Context, auctionID string, roundIndex int) (*entities.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE auction_id = $1 AND round_index = $2`
	rd, err := scanRound(r.q.QueryRow(ctx, query, auctionID, roundIndex))
	if err != nil {
		return nil, fmt.Errorf("failed to get round %s/%d: %w", auctionID, roundIndex, err)
	}
	return rd, nil
}

// Update persists a round's lifecycle state, window, and extension count.
func (r *RoundRepository) Update(ctx context.Context, rd *entities.Round) error {
	query := `
		UPDATE rounds SET state = $1, starts_at = $2, ends_at = $3, extensions = $4, settled_at = $5
		WHERE auction_id = $6 AND round_index = $7
	`
	result, err := r.q.Exec(ctx, query, rd.State, rd.StartsAt, rd.EndsAt, rd.Extensions, rd.SettledAt, rd.AuctionID, rd.RoundIndex)
	if err != nil {
		return fmt.Errorf("failed to update round %s/%d: %w", rd.AuctionID, rd.RoundIndex, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("round %s/%d not found", rd.AuctionID, rd.RoundIndex)
	}
	return nil
}

// intSliceToPG adapts a Go []int into the form pgx encodes as a Postgres
// integer array; pgx/v5 natively supports []int32 but not []int, so the
// prize vector is stored as int[] via an explicit conversion at the edge.
func intSliceToPG(vals []int) []int32 {
	out := make([]int32, len(vals))
	for i, v := range vals {
		out[i] = int32(v)
	}
	return out
}
