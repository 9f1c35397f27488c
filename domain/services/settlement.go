package services

import (
	"errors"

	"auctionhouse/domain/entities"
)

// SettlementService contains the pure payout arithmetic for settling one
// round: who wins a prize, how much they're debited, and who gets their
// lock refunded. Unlike a pool wager's shared-pot split, a sealed-ascending
// round is a fixed-price settlement — each of the top N bidders pays exactly
// their own winning bid, not a pro-rata share of a pool.
type SettlementService struct{}

// NewSettlementService creates a new SettlementService.
func NewSettlementService() *SettlementService {
	return &SettlementService{}
}

// SettlementPlan is the pure result of settling a round, before any I/O.
type SettlementPlan struct {
	Winners  []*entities.Winner
	Refunded []string
}

// PlanSettlement takes the ranked bids for a round (already sorted
// descending by composite score) and produces the winner assignments and
// refund list. winnersPerRound bounds how many places pay out; bids beyond
// that are refunded in full.
func (s *SettlementService) PlanSettlement(
	auctionID string,
	roundIndex int,
	prizeGiftName string,
	rankedBids []RankedBidInput,
	winnersPerRound int,
) (*SettlementPlan, error) {
	if winnersPerRound <= 0 {
		return nil, errors.New("winnersPerRound must be positive")
	}

	plan := &SettlementPlan{}
	for i, bid := range rankedBids {
		place := i + 1
		if place <= winnersPerRound {
			plan.Winners = append(plan.Winners, &entities.Winner{
				AuctionID:     auctionID,
				RoundIndex:    roundIndex,
				Place:         place,
				UserID:        bid.UserID,
				Amount:        bid.Amount,
				PrizeGiftName: prizeGiftName,
			})
		} else {
			plan.Refunded = append(plan.Refunded, bid.UserID)
		}
	}
	return plan, nil
}

// RankedBidInput is the minimal shape PlanSettlement needs from a ranked bid.
type RankedBidInput struct {
	UserID string
	Amount int64
}

// ValidatePrizeSupply ensures the round's prize count matches the number of
// winners a settlement is about to mint, so prize conservation can never be
// violated by a mismatched winnersPerRound/prizeCount configuration.
func (s *SettlementService) ValidatePrizeSupply(prizeCount, winnersPerRound int) error {
	if prizeCount != winnersPerRound {
		return errors.New("prize count must equal winners per round")
	}
	return nil
}
