package repository

import (
	"context"
	"fmt"

	"auctionhouse/database"
	"auctionhouse/domain/interfaces"
	"auctionhouse/infrastructure"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements interfaces.UnitOfWork, binding one Postgres
// transaction to a set of repositories and a transactional event publisher
// that only forwards events once the transaction commits.
type unitOfWork struct {
	db  *database.DB
	tx  pgx.Tx
	ctx context.Context

	transactionalPublisher *infrastructure.NATSTransactionalPublisher

	userRepo           interfaces.UserRepository
	giftRepo           interfaces.GiftRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	transactionRepo    interfaces.TransactionRepository
	auctionRepo        interfaces.AuctionRepository
	roundRepo          interfaces.RoundRepository
	winnerRepo         interfaces.WinnerRepository
	scheduledJobRepo   interfaces.ScheduledJobRepository
}

// unitOfWorkFactory implements interfaces.UnitOfWorkFactory.
type unitOfWorkFactory struct {
	db             *database.DB
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory.
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) interfaces.UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db, eventPublisher: eventPublisher}
}

// Create returns a new, not-yet-begun UnitOfWork.
func (f *unitOfWorkFactory) Create() interfaces.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: infrastructure.NewNATSTransactionalPublisher(f.eventPublisher),
	}
}

// Begin starts a new transaction and wires every repository to it.
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = NewUserRepository(tx)
	u.giftRepo = NewGiftRepository(tx)
	u.balanceHistoryRepo = NewBalanceHistoryRepository(tx)
	u.transactionRepo = NewTransactionRepository(tx)
	u.auctionRepo = NewAuctionRepository(tx)
	u.roundRepo = NewRoundRepository(tx)
	u.winnerRepo = NewWinnerRepository(tx)
	u.scheduledJobRepo = NewScheduledJobRepository(tx)

	return nil
}

// Commit commits the transaction, then flushes events queued during it.
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	return u.transactionalPublisher.Flush(u.ctx)
}

// Rollback rolls back the transaction and discards any queued events.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	u.tx = nil

	u.transactionalPublisher.Discard()
	return nil
}

func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

func (u *unitOfWork) GiftRepository() interfaces.GiftRepository {
	if u.giftRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.giftRepo
}

func (u *unitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceHistoryRepo
}

func (u *unitOfWork) TransactionRepository() interfaces.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

func (u *unitOfWork) AuctionRepository() interfaces.AuctionRepository {
	if u.auctionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.auctionRepo
}

func (u *unitOfWork) RoundRepository() interfaces.RoundRepository {
	if u.roundRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roundRepo
}

func (u *unitOfWork) WinnerRepository() interfaces.WinnerRepository {
	if u.winnerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.winnerRepo
}

func (u *unitOfWork) ScheduledJobRepository() interfaces.ScheduledJobRepository {
	if u.scheduledJobRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.scheduledJobRepo
}

// EventBus returns the transactional event publisher for this unit of work.
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	return u.transactionalPublisher
}
