package entities

import "time"

// Transaction is a durable ledger row keyed by a deterministic operation id,
// making every write idempotent under retry: re-applying the same op id is a
// no-op by construction (see repository.TransactionRepository.Upsert).
type Transaction struct {
	OpID        string            `db:"op_id"`
	UserID      string            `db:"user_id"`
	AuctionID   string            `db:"auction_id"`
	RoundIndex  int               `db:"round_index"`
	Type        TransactionType   `db:"type"`
	Status      TransactionStatus `db:"status"`
	Amount      int64             `db:"amount"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// IsActiveLock reports whether this row still represents live locked funds.
func (t *Transaction) IsActiveLock() bool {
	return t.Type.IsLockType() && t.Status == TransactionStatusActive
}
