package scheduler

import (
	"context"
	"testing"
	"time"

	"auctionhouse/domain/entities"
	"auctionhouse/domain/interfaces"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockJobRepository struct {
	mock.Mock
}

func (m *mockJobRepository) Schedule(ctx context.Context, jobID, jobType, payload string, runAt time.Time) error {
	return m.Called(ctx, jobID, jobType, payload, runAt).Error(0)
}

func (m *mockJobRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*entities.ScheduledJob, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ScheduledJob), args.Error(1)
}

func (m *mockJobRepository) MarkCompleted(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *mockJobRepository) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	return m.Called(ctx, jobID, errMsg).Error(0)
}

func (m *mockJobRepository) GetNextRunAt(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *mockJobRepository) GetByID(ctx context.Context, jobID string) (*entities.ScheduledJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ScheduledJob), args.Error(1)
}

func (m *mockJobRepository) Reschedule(ctx context.Context, jobID string, runAt time.Time) error {
	return m.Called(ctx, jobID, runAt).Error(0)
}

type workerUnitOfWork struct {
	mock.Mock
	jobs *mockJobRepository
}

func (m *workerUnitOfWork) Begin(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *workerUnitOfWork) Commit() error                   { return m.Called().Error(0) }
func (m *workerUnitOfWork) Rollback() error                 { return m.Called().Error(0) }

func (m *workerUnitOfWork) UserRepository() interfaces.UserRepository                     { return nil }
func (m *workerUnitOfWork) GiftRepository() interfaces.GiftRepository                     { return nil }
func (m *workerUnitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository { return nil }
func (m *workerUnitOfWork) TransactionRepository() interfaces.TransactionRepository       { return nil }
func (m *workerUnitOfWork) AuctionRepository() interfaces.AuctionRepository               { return nil }
func (m *workerUnitOfWork) RoundRepository() interfaces.RoundRepository                   { return nil }
func (m *workerUnitOfWork) WinnerRepository() interfaces.WinnerRepository                 { return nil }
func (m *workerUnitOfWork) ScheduledJobRepository() interfaces.ScheduledJobRepository     { return m.jobs }
func (m *workerUnitOfWork) EventBus() interfaces.EventPublisher                           { return nil }

type workerUoWFactory struct {
	uow *workerUnitOfWork
}

func (f *workerUoWFactory) Create() interfaces.UnitOfWork { return f.uow }

type mockRoundProcessor struct {
	mock.Mock
}

func (m *mockRoundProcessor) StartRound(ctx context.Context, auctionID string, roundIndex int) error {
	return m.Called(ctx, auctionID, roundIndex).Error(0)
}

func (m *mockRoundProcessor) EndRound(ctx context.Context, auctionID string, roundIndex int) (*entities.RoundResult, error) {
	args := m.Called(ctx, auctionID, roundIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RoundResult), args.Error(1)
}

func (m *mockRoundProcessor) ExtendRound(ctx context.Context, auctionID string, roundIndex int) (bool, error) {
	args := m.Called(ctx, auctionID, roundIndex)
	return args.Bool(0), args.Error(1)
}

func newTestWorker(jobs *mockJobRepository, processor *mockRoundProcessor) (*Worker, *workerUnitOfWork) {
	uow := &workerUnitOfWork{jobs: jobs}
	w := NewWorker(&workerUoWFactory{uow: uow}, processor)
	return w, uow
}

func TestWorker_ProcessJob_StartRoundDispatchesAndMarksCompleted(t *testing.T) {
	ctx := context.Background()
	jobs := new(mockJobRepository)
	processor := new(mockRoundProcessor)
	w, uow := newTestWorker(jobs, processor)

	job := &entities.ScheduledJob{JobID: "a1-round-0", JobType: entities.JobTypeRoundStart, Payload: `{"auctionId":"a1","roundIndex":0}`}

	processor.On("StartRound", mock.Anything, "a1", 0).Return(nil)
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Rollback").Return(nil)
	uow.On("Commit").Return(nil)
	jobs.On("MarkCompleted", mock.Anything, "a1-round-0").Return(nil)

	w.processJob(ctx, job)

	processor.AssertExpectations(t)
	jobs.AssertExpectations(t)
}

func TestWorker_ProcessJob_EndRoundDispatchesAndMarksCompleted(t *testing.T) {
	ctx := context.Background()
	jobs := new(mockJobRepository)
	processor := new(mockRoundProcessor)
	w, uow := newTestWorker(jobs, processor)

	job := &entities.ScheduledJob{JobID: "a1-round-0-end", JobType: entities.JobTypeRoundEnd, Payload: `{"auctionId":"a1","roundIndex":0}`}

	processor.On("EndRound", mock.Anything, "a1", 0).Return(&entities.RoundResult{}, nil)
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Rollback").Return(nil)
	uow.On("Commit").Return(nil)
	jobs.On("MarkCompleted", mock.Anything, "a1-round-0-end").Return(nil)

	w.processJob(ctx, job)

	processor.AssertExpectations(t)
	jobs.AssertExpectations(t)
}

func TestWorker_ProcessJob_ProcessorErrorMarksFailed(t *testing.T) {
	ctx := context.Background()
	jobs := new(mockJobRepository)
	processor := new(mockRoundProcessor)
	w, uow := newTestWorker(jobs, processor)

	job := &entities.ScheduledJob{JobID: "a1-round-0", JobType: entities.JobTypeRoundStart, Payload: `{"auctionId":"a1","roundIndex":0}`}

	processor.On("StartRound", mock.Anything, "a1", 0).Return(assertAnError("round already settling"))
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Rollback").Return(nil)
	uow.On("Commit").Return(nil)
	jobs.On("MarkFailed", mock.Anything, "a1-round-0", mock.AnythingOfType("string")).Return(nil)

	w.processJob(ctx, job)

	processor.AssertExpectations(t)
	jobs.AssertExpectations(t)
	jobs.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
}

func TestWorker_ProcessJob_BadPayloadMarksFailedWithoutDispatching(t *testing.T) {
	ctx := context.Background()
	jobs := new(mockJobRepository)
	processor := new(mockRoundProcessor)
	w, uow := newTestWorker(jobs, processor)

	job := &entities.ScheduledJob{JobID: "bad-job", JobType: entities.JobTypeRoundStart, Payload: `not-json`}

	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Rollback").Return(nil)
	uow.On("Commit").Return(nil)
	jobs.On("MarkFailed", mock.Anything, "bad-job", mock.AnythingOfType("string")).Return(nil)

	w.processJob(ctx, job)

	processor.AssertNotCalled(t, "StartRound", mock.Anything, mock.Anything, mock.Anything)
	jobs.AssertExpectations(t)
}

func TestWorker_ProcessJob_UnknownJobTypeMarksFailed(t *testing.T) {
	ctx := context.Background()
	jobs := new(mockJobRepository)
	processor := new(mockRoundProcessor)
	w, uow := newTestWorker(jobs, processor)

	job := &entities.ScheduledJob{JobID: "weird-job", JobType: "something_else", Payload: `{"auctionId":"a1","roundIndex":0}`}

	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Rollback").Return(nil)
	uow.On("Commit").Return(nil)
	jobs.On("MarkFailed", mock.Anything, "weird-job", mock.AnythingOfType("string")).Return(nil)

	w.processJob(ctx, job)

	jobs.AssertExpectations(t)
}

func TestWorker_WaitDuration_CapsAtPollIntervalWhenNoNextJob(t *testing.T) {
	ctx := context.Background()
	jobs := new(mockJobRepository)
	w, uow := newTestWorker(jobs, new(mockRoundProcessor))

	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)
	jobs.On("GetNextRunAt", ctx).Return(nil, nil)

	wait := w.waitDuration(ctx)

	require.Equal(t, pollInterval, wait)
}

func TestWorker_WaitDuration_ZeroWhenJobAlreadyDue(t *testing.T) {
	ctx := context.Background()
	jobs := new(mockJobRepository)
	w, uow := newTestWorker(jobs, new(mockRoundProcessor))

	past := time.Now().Add(-time.Minute)
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)
	jobs.On("GetNextRunAt", ctx).Return(&past, nil)

	wait := w.waitDuration(ctx)

	require.Equal(t, time.Duration(0), wait)
}

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }

func assertAnError(msg string) error {
	return &simpleError{msg: msg}
}
