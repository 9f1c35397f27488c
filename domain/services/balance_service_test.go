package services

import (
	"testing"

	"auctionhouse/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceService_ValidateBalanceChange(t *testing.T) {
	s := NewBalanceService()

	ok := &BalanceChange{BalanceBefore: 1000, BalanceAfter: 900, ChangeAmount: -100}
	assert.NoError(t, s.ValidateBalanceChange(ok))

	bad := &BalanceChange{BalanceBefore: 1000, BalanceAfter: 950, ChangeAmount: -100}
	assert.Error(t, s.ValidateBalanceChange(bad), "balance math must reconcile")

	zero := &BalanceChange{BalanceBefore: 1000, BalanceAfter: 1000, ChangeAmount: 0}
	assert.Error(t, s.ValidateBalanceChange(zero), "a zero-amount change is rejected")
}

func TestBalanceService_CalculateNewBalance(t *testing.T) {
	s := NewBalanceService()
	assert.Equal(t, int64(1100), s.CalculateNewBalance(1000, 100))
	assert.Equal(t, int64(900), s.CalculateNewBalance(1000, -100))
}

func TestBalanceService_CalculateNewAvailableBalance_NeverNegative(t *testing.T) {
	s := NewBalanceService()
	assert.Equal(t, int64(400), s.CalculateNewAvailableBalance(1000, 600))
	assert.Equal(t, int64(0), s.CalculateNewAvailableBalance(1000, 1500), "locked exceeding balance floors at zero")
}

func TestBalanceService_CreateBalanceHistory(t *testing.T) {
	s := NewBalanceService()
	change := &BalanceChange{
		UserID:          "u1",
		BalanceBefore:   1000,
		BalanceAfter:    900,
		ChangeAmount:    -100,
		TransactionType: entities.TransactionTypeBid,
	}

	h := s.CreateBalanceHistory(change, nil, nil)

	require.NotNil(t, h)
	assert.Equal(t, "u1", h.UserID)
	assert.Equal(t, int64(1000), h.BalanceBefore)
	assert.Equal(t, int64(900), h.BalanceAfter)
	assert.Equal(t, entities.TransactionTypeBid, h.TransactionType)
}

func TestBalanceService_ValidateMinimumBalance(t *testing.T) {
	s := NewBalanceService()
	assert.NoError(t, s.ValidateMinimumBalance(0, 0))
	assert.Error(t, s.ValidateMinimumBalance(-1, 0))
}

func TestBalanceService_ValidateMintAmount(t *testing.T) {
	s := NewBalanceService()
	assert.NoError(t, s.ValidateMintAmount(500, 1000))
	assert.Error(t, s.ValidateMintAmount(0, 1000))
	assert.Error(t, s.ValidateMintAmount(-5, 1000))
	assert.Error(t, s.ValidateMintAmount(1001, 1000))
}
