package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"auctionhouse/domain/entities"
	"auctionhouse/domain/interfaces"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuctionRepository struct {
	mock.Mock
}

func (m *mockAuctionRepository) Create(ctx context.Context, auction *entities.Auction) error {
	return m.Called(ctx, auction).Error(0)
}

func (m *mockAuctionRepository) Delete(ctx context.Context, auctionID string) error {
	return m.Called(ctx, auctionID).Error(0)
}

func (m *mockAuctionRepository) GetByID(ctx context.Context, auctionID string) (*entities.Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Auction), args.Error(1)
}

func (m *mockAuctionRepository) GetForUpdate(ctx context.Context, auctionID string) (*entities.Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Auction), args.Error(1)
}

func (m *mockAuctionRepository) Update(ctx context.Context, auction *entities.Auction) error {
	return m.Called(ctx, auction).Error(0)
}

func (m *mockAuctionRepository) GetActive(ctx context.Context) ([]*entities.Auction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Auction), args.Error(1)
}

type mockUnitOfWork struct {
	mock.Mock
	auctions *mockAuctionRepository
}

func (m *mockUnitOfWork) Begin(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockUnitOfWork) Commit() error                   { return m.Called().Error(0) }
func (m *mockUnitOfWork) Rollback() error                 { return m.Called().Error(0) }

func (m *mockUnitOfWork) UserRepository() interfaces.UserRepository                     { return nil }
func (m *mockUnitOfWork) GiftRepository() interfaces.GiftRepository                     { return nil }
func (m *mockUnitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository { return nil }
func (m *mockUnitOfWork) TransactionRepository() interfaces.TransactionRepository       { return nil }
func (m *mockUnitOfWork) AuctionRepository() interfaces.AuctionRepository               { return m.auctions }
func (m *mockUnitOfWork) RoundRepository() interfaces.RoundRepository                   { return nil }
func (m *mockUnitOfWork) WinnerRepository() interfaces.WinnerRepository                 { return nil }
func (m *mockUnitOfWork) ScheduledJobRepository() interfaces.ScheduledJobRepository     { return nil }
func (m *mockUnitOfWork) EventBus() interfaces.EventPublisher                           { return nil }

type stubUoWFactory struct {
	uow *mockUnitOfWork
}

func (f *stubUoWFactory) Create() interfaces.UnitOfWork { return f.uow }

type mockBidEngine struct {
	mock.Mock
}

func (m *mockBidEngine) PlaceBid(ctx context.Context, auctionID, userID string, amount, availableBalance int64, idempotencyKey string) (*interfaces.BidOutcome, error) {
	args := m.Called(ctx, auctionID, userID, amount, availableBalance, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.BidOutcome), args.Error(1)
}

func (m *mockBidEngine) TopBids(ctx context.Context, auctionID string, n int) ([]*interfaces.RankedBid, error) {
	args := m.Called(ctx, auctionID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*interfaces.RankedBid), args.Error(1)
}

func (m *mockBidEngine) UserBid(ctx context.Context, auctionID, userID string) (*interfaces.RankedBid, error) {
	args := m.Called(ctx, auctionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RankedBid), args.Error(1)
}

func (m *mockBidEngine) ClearAuction(ctx context.Context, auctionID string, userIDs []string) error {
	return m.Called(ctx, auctionID, userIDs).Error(0)
}

func newTestBus(uow *mockUnitOfWork, engine *mockBidEngine) *Bus {
	return New(nil, &stubUoWFactory{uow: uow}, engine)
}

func TestBuildAuctionSnapshot_ActiveAuctionIncludesTopBids(t *testing.T) {
	ctx := context.Background()
	endsAt := time.Unix(1700000500, 0)
	auction := &entities.Auction{ID: "a1", State: entities.AuctionStateActive, CurrentRound: 0, RoundEndsAt: &endsAt}

	auctions := new(mockAuctionRepository)
	auctions.On("GetByID", ctx, "a1").Return(auction, nil)
	uow := &mockUnitOfWork{auctions: auctions}
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)

	engine := new(mockBidEngine)
	engine.On("TopBids", ctx, "a1", 50).Return([]*interfaces.RankedBid{
		{UserID: "u1", Amount: 500, Rank: 1, FirstBidAt: 1700000000},
	}, nil)

	bus := newTestBus(uow, engine)
	payload, terminal, err := bus.buildAuctionSnapshot(ctx, "a1")

	require.NoError(t, err)
	require.False(t, terminal)

	var snap AuctionSnapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	require.Len(t, snap.Bids, 1)
	require.Equal(t, "u1", snap.Bids[0].UserID)
	require.Equal(t, "a1", snap.AuctionID)

	auctions.AssertExpectations(t)
	engine.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestBuildAuctionSnapshot_TerminalStateOmitsBidLookup(t *testing.T) {
	ctx := context.Background()
	auction := &entities.Auction{ID: "a1", State: entities.AuctionStateCompleted, CurrentRound: 3}

	auctions := new(mockAuctionRepository)
	auctions.On("GetByID", ctx, "a1").Return(auction, nil)
	uow := &mockUnitOfWork{auctions: auctions}
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)

	engine := new(mockBidEngine)
	bus := newTestBus(uow, engine)

	payload, terminal, err := bus.buildAuctionSnapshot(ctx, "a1")

	require.NoError(t, err)
	require.True(t, terminal)

	var snap AuctionSnapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	require.Empty(t, snap.Bids)

	engine.AssertNotCalled(t, "TopBids", mock.Anything, mock.Anything, mock.Anything)
}

func TestBuildAuctionSnapshot_MissingAuctionIsError(t *testing.T) {
	ctx := context.Background()
	auctions := new(mockAuctionRepository)
	auctions.On("GetByID", ctx, "missing").Return(nil, nil)
	uow := &mockUnitOfWork{auctions: auctions}
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)

	bus := newTestBus(uow, new(mockBidEngine))
	_, _, err := bus.buildAuctionSnapshot(ctx, "missing")

	require.Error(t, err)
}

func TestBuildAllAuctionsSnapshot_IncludesTopBidPerActiveAuction(t *testing.T) {
	ctx := context.Background()
	endsAt := time.Unix(1700000500, 0)
	a1 := &entities.Auction{ID: "a1", State: entities.AuctionStateActive, CurrentRound: 0, RoundEndsAt: &endsAt}
	a2 := &entities.Auction{ID: "a2", State: entities.AuctionStateActive, CurrentRound: 1}

	auctions := new(mockAuctionRepository)
	auctions.On("GetActive", ctx).Return([]*entities.Auction{a1, a2}, nil)
	uow := &mockUnitOfWork{auctions: auctions}
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)

	engine := new(mockBidEngine)
	engine.On("TopBids", ctx, "a1", 1).Return([]*interfaces.RankedBid{{UserID: "u1", Amount: 100, Rank: 1}}, nil)
	engine.On("TopBids", ctx, "a2", 1).Return([]*interfaces.RankedBid{}, nil)

	bus := newTestBus(uow, engine)
	payload, terminal, err := bus.buildAllAuctionsSnapshot(ctx)

	require.NoError(t, err)
	require.False(t, terminal)

	var snap AllAuctionsSnapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	require.Len(t, snap.Auctions, 2)
	require.NotNil(t, snap.Auctions[0].TopBid)
	require.Equal(t, "u1", snap.Auctions[0].TopBid.UserID)
	require.Nil(t, snap.Auctions[1].TopBid)
}

func TestPerAuctionChannelAndCacheKey_AreNamespacedByID(t *testing.T) {
	require.Equal(t, "auction:a1:updates", perAuctionChannel("a1"))
	require.Equal(t, "snapshot:auction:a1", perAuctionCacheKey("a1"))
	require.NotEqual(t, perAuctionChannel("a1"), perAuctionChannel("a2"))
}
