package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementService_PlanSettlement_TopNWinRestRefund(t *testing.T) {
	s := NewSettlementService()

	ranked := []RankedBidInput{
		{UserID: "u1", Amount: 500},
		{UserID: "u2", Amount: 400},
		{UserID: "u3", Amount: 300},
		{UserID: "u4", Amount: 200},
	}

	plan, err := s.PlanSettlement("auction-1", 0, "star-gift", ranked, 2)
	require.NoError(t, err)

	require.Len(t, plan.Winners, 2)
	assert.Equal(t, "u1", plan.Winners[0].UserID)
	assert.Equal(t, 1, plan.Winners[0].Place)
	assert.Equal(t, int64(500), plan.Winners[0].Amount)
	assert.Equal(t, "u2", plan.Winners[1].UserID)
	assert.Equal(t, 2, plan.Winners[1].Place)

	assert.Equal(t, []string{"u3", "u4"}, plan.Refunded)
}

func TestSettlementService_PlanSettlement_FewerBidsThanSlots(t *testing.T) {
	s := NewSettlementService()

	ranked := []RankedBidInput{{UserID: "u1", Amount: 100}}
	plan, err := s.PlanSettlement("auction-1", 0, "star-gift", ranked, 3)
	require.NoError(t, err)

	assert.Len(t, plan.Winners, 1)
	assert.Empty(t, plan.Refunded)
}

func TestSettlementService_PlanSettlement_NoBids(t *testing.T) {
	s := NewSettlementService()

	plan, err := s.PlanSettlement("auction-1", 0, "star-gift", nil, 3)
	require.NoError(t, err)

	assert.Empty(t, plan.Winners)
	assert.Empty(t, plan.Refunded)
}

func TestSettlementService_PlanSettlement_RejectsNonPositiveSlots(t *testing.T) {
	s := NewSettlementService()

	_, err := s.PlanSettlement("auction-1", 0, "star-gift", nil, 0)
	assert.Error(t, err)
}

func TestSettlementService_ValidatePrizeSupply(t *testing.T) {
	s := NewSettlementService()

	assert.NoError(t, s.ValidatePrizeSupply(3, 3))
	assert.Error(t, s.ValidatePrizeSupply(3, 2))
}
