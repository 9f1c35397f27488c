package services

import (
	"errors"
	"time"

	"auctionhouse/domain/entities"
)

// BalanceService contains pure business logic for balance bookkeeping. It
// performs no I/O; callers persist whatever it computes.
type BalanceService struct{}

// NewBalanceService creates a new BalanceService.
func NewBalanceService() *BalanceService {
	return &BalanceService{}
}

// BalanceChange represents a balance modification ready to be recorded.
type BalanceChange struct {
	UserID          string
	BalanceBefore   int64
	BalanceAfter    int64
	ChangeAmount    int64
	TransactionType entities.TransactionType
	Metadata        map[string]any
}

// ValidateBalanceChange ensures a balance change is mathematically correct.
func (s *BalanceService) ValidateBalanceChange(change *BalanceChange) error {
	expectedAfter := change.BalanceBefore + change.ChangeAmount
	if change.BalanceAfter != expectedAfter {
		return errors.New("balance calculation is inconsistent")
	}
	if change.ChangeAmount == 0 {
		return errors.New("change amount cannot be zero")
	}
	return nil
}

// CalculateNewBalance computes the new balance after a change.
func (s *BalanceService) CalculateNewBalance(currentBalance, changeAmount int64) int64 {
	return currentBalance + changeAmount
}

// CalculateNewAvailableBalance computes available balance after accounting
// for the amount locked in active bids.
func (s *BalanceService) CalculateNewAvailableBalance(totalBalance, lockedAmount int64) int64 {
	available := totalBalance - lockedAmount
	if available < 0 {
		return 0
	}
	return available
}

// CreateBalanceHistory creates a balance history entry from a balance change.
func (s *BalanceService) CreateBalanceHistory(change *BalanceChange, relatedID *string, relatedType *entities.RelatedType) *entities.BalanceHistory {
	return &entities.BalanceHistory{
		UserID:          change.UserID,
		BalanceBefore:   change.BalanceBefore,
		BalanceAfter:    change.BalanceAfter,
		ChangeAmount:    change.ChangeAmount,
		TransactionType: change.TransactionType,
		Metadata:        change.Metadata,
		RelatedID:       relatedID,
		RelatedType:     relatedType,
		CreatedAt:       time.Now(),
	}
}

// ValidateMinimumBalance ensures a balance doesn't go below a minimum.
func (s *BalanceService) ValidateMinimumBalance(newBalance, minimumBalance int64) error {
	if newBalance < minimumBalance {
		return errors.New("balance cannot go below minimum threshold")
	}
	return nil
}

// ValidateMintAmount bounds the debug balance-minting endpoint so it can
// never be used to credit an unbounded or negative amount.
func (s *BalanceService) ValidateMintAmount(amount, maxMint int64) error {
	if amount <= 0 {
		return errors.New("mint amount must be positive")
	}
	if amount > maxMint {
		return errors.New("mint amount exceeds maximum allowed")
	}
	return nil
}
