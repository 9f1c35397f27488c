package interfaces

import "context"

// UnitOfWork defines the interface for transactional repository operations.
// A single UnitOfWork wraps one durable-store transaction; all repositories
// it returns share that transaction until Commit or Rollback is called.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	GiftRepository() GiftRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	TransactionRepository() TransactionRepository
	AuctionRepository() AuctionRepository
	RoundRepository() RoundRepository
	WinnerRepository() WinnerRepository
	ScheduledJobRepository() ScheduledJobRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances.
type UnitOfWorkFactory interface {
	// Create returns a new UnitOfWork. Events published during its
	// transaction are buffered and only forwarded to the real event
	// publisher on commit; a rollback discards them.
	Create() UnitOfWork
}
