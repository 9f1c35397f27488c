package roundprocessor

import (
	"context"
	"testing"
	"time"

	"auctionhouse/domain/entities"
	"auctionhouse/domain/interfaces"
	"auctionhouse/events"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type procAuctionRepository struct {
	mock.Mock
}

func (m *procAuctionRepository) Create(ctx context.Context, auction *entities.Auction) error {
	return m.Called(ctx, auction).Error(0)
}
func (m *procAuctionRepository) Delete(ctx context.Context, auctionID string) error {
	return m.Called(ctx, auctionID).Error(0)
}
func (m *procAuctionRepository) GetByID(ctx context.Context, auctionID string) (*entities.Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Auction), args.Error(1)
}
func (m *procAuctionRepository) GetForUpdate(ctx context.Context, auctionID string) (*entities.Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Auction), args.Error(1)
}
func (m *procAuctionRepository) Update(ctx context.Context, auction *entities.Auction) error {
	return m.Called(ctx, auction).Error(0)
}
func (m *procAuctionRepository) GetActive(ctx context.Context) ([]*entities.Auction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Auction), args.Error(1)
}

type procRoundRepository struct {
	mock.Mock
}

func (m *procRoundRepository) Create(ctx context.Context, round *entities.Round) error {
	return m.Called(ctx, round).Error(0)
}
func (m *procRoundRepository) GetByAuctionAndIndex(ctx context.Context, auctionID string, roundIndex int) (*entities.Round, error) {
	args := m.Called(ctx, auctionID, roundIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}
func (m *procRoundRepository) Update(ctx context.Context, round *entities.Round) error {
	return m.Called(ctx, round).Error(0)
}

type procUnitOfWork struct {
	mock.Mock
	auctions *procAuctionRepository
	rounds   *procRoundRepository
}

func (m *procUnitOfWork) Begin(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *procUnitOfWork) Commit() error                   { return m.Called().Error(0) }
func (m *procUnitOfWork) Rollback() error                 { return m.Called().Error(0) }

func (m *procUnitOfWork) UserRepository() interfaces.UserRepository                     { return nil }
func (m *procUnitOfWork) GiftRepository() interfaces.GiftRepository                     { return nil }
func (m *procUnitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository { return nil }
func (m *procUnitOfWork) TransactionRepository() interfaces.TransactionRepository       { return nil }
func (m *procUnitOfWork) AuctionRepository() interfaces.AuctionRepository               { return m.auctions }
func (m *procUnitOfWork) RoundRepository() interfaces.RoundRepository                   { return m.rounds }
func (m *procUnitOfWork) WinnerRepository() interfaces.WinnerRepository                 { return nil }
func (m *procUnitOfWork) ScheduledJobRepository() interfaces.ScheduledJobRepository     { return nil }
func (m *procUnitOfWork) EventBus() interfaces.EventPublisher                           { return noopEventPublisher{} }

type noopEventPublisher struct{}

func (noopEventPublisher) Publish(event events.Event) error { return nil }

type procUoWFactory struct {
	uow *procUnitOfWork
}

func (f *procUoWFactory) Create() interfaces.UnitOfWork { return f.uow }

type procScheduler struct {
	mock.Mock
}

func (m *procScheduler) ScheduleRoundStart(ctx context.Context, auctionID string, roundIndex int, runAt int64) error {
	return m.Called(ctx, auctionID, roundIndex, runAt).Error(0)
}
func (m *procScheduler) ScheduleRoundEnd(ctx context.Context, auctionID string, roundIndex int, runAt int64) error {
	return m.Called(ctx, auctionID, roundIndex, runAt).Error(0)
}
func (m *procScheduler) Reschedule(ctx context.Context, jobID string, runAtUnix int64) error {
	return m.Called(ctx, jobID, runAtUnix).Error(0)
}
func (m *procScheduler) GetJob(ctx context.Context, jobID string) (*entities.ScheduledJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ScheduledJob), args.Error(1)
}

type procNotifier struct {
	mock.Mock
}

func (m *procNotifier) Subscribe(ctx context.Context, auctionID string) (<-chan []byte, func(), error) {
	return nil, nil, nil
}
func (m *procNotifier) Nudge(auctionID string) { m.Called(auctionID) }

func newTestProcessor(uow *procUnitOfWork, sched *procScheduler, notifier *procNotifier) *Processor {
	return New(&procUoWFactory{uow: uow}, nil, sched, nil, notifier, nil, Config{
		TriggerWindow: 10 * time.Second,
		Extension:     30 * time.Second,
		MaxExtensions: 5,
	})
}

func TestStartRound_OpensPendingAuctionAndSchedulesEnd(t *testing.T) {
	ctx := context.Background()
	auction := &entities.Auction{ID: "a1", State: entities.AuctionStateScheduled, CurrentRound: entities.CurrentRoundPending}
	round := &entities.Round{AuctionID: "a1", RoundIndex: 0, DurationSeconds: 60}

	auctions := new(procAuctionRepository)
	auctions.On("GetForUpdate", ctx, "a1").Return(auction, nil)
	auctions.On("Update", ctx, mock.MatchedBy(func(a *entities.Auction) bool {
		return a.State == entities.AuctionStateActive && a.CurrentRound == 0
	})).Return(nil)

	rounds := new(procRoundRepository)
	rounds.On("GetByAuctionAndIndex", ctx, "a1", 0).Return(round, nil)
	rounds.On("Update", ctx, mock.MatchedBy(func(r *entities.Round) bool {
		return r.State == entities.RoundStateOpen
	})).Return(nil)

	uow := &procUnitOfWork{auctions: auctions, rounds: rounds}
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)
	uow.On("Commit").Return(nil)

	sched := new(procScheduler)
	sched.On("ScheduleRoundEnd", ctx, "a1", 0, mock.AnythingOfType("int64")).Return(nil)

	notifier := new(procNotifier)
	notifier.On("Nudge", "a1").Return()

	p := newTestProcessor(uow, sched, notifier)
	err := p.StartRound(ctx, "a1", 0)

	require.NoError(t, err)
	auctions.AssertExpectations(t)
	rounds.AssertExpectations(t)
	sched.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestStartRound_DuplicateFireOnAlreadyActiveAuctionIsDropped(t *testing.T) {
	ctx := context.Background()
	auction := &entities.Auction{ID: "a1", State: entities.AuctionStateActive, CurrentRound: 0}

	auctions := new(procAuctionRepository)
	auctions.On("GetForUpdate", ctx, "a1").Return(auction, nil)

	uow := &procUnitOfWork{auctions: auctions}
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)

	sched := new(procScheduler)
	notifier := new(procNotifier)

	p := newTestProcessor(uow, sched, notifier)
	err := p.StartRound(ctx, "a1", 0)

	require.NoError(t, err)
	auctions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	sched.AssertNotCalled(t, "ScheduleRoundEnd", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Nudge", mock.Anything)
}

func TestStartRound_MissingAuctionIsError(t *testing.T) {
	ctx := context.Background()
	auctions := new(procAuctionRepository)
	auctions.On("GetForUpdate", ctx, "missing").Return(nil, nil)

	uow := &procUnitOfWork{auctions: auctions}
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)

	p := newTestProcessor(uow, new(procScheduler), new(procNotifier))
	err := p.StartRound(ctx, "missing", 0)

	require.Error(t, err)
}
