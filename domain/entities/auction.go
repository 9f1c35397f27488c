package entities

import "time"

// AuctionState represents the lifecycle state of an auction.
type AuctionState string

const (
	AuctionStateScheduled AuctionState = "scheduled"
	AuctionStateActive    AuctionState = "active"
	AuctionStateSettling  AuctionState = "settling"
	AuctionStateCompleted AuctionState = "completed"
	AuctionStateCancelled AuctionState = "cancelled"
)

// Auction represents a multi-round sealed-ascending-bid auction for a pool
// of gift prizes, settled in fixed-size rounds.
type Auction struct {
	ID            string       `db:"id"`
	Title         string       `db:"title"`
	AuthorID      string       `db:"author_id"`
	PrizeGiftName string       `db:"prize_gift_name"`
	State         AuctionState `db:"state"`
	TotalRounds   int          `db:"total_rounds"`
	// CurrentRound follows spec.md's sentinel convention: -1 before the
	// auction starts, 0..TotalRounds-1 while a round is open, and
	// CurrentRoundSettling while a round's settlement is in flight.
	CurrentRound  int        `db:"current_round"`
	RoundStartsAt *time.Time `db:"round_starts_at"`
	RoundEndsAt   *time.Time `db:"round_ends_at"`
	CreatedAt     time.Time  `db:"created_at"`
	CompletedAt   *time.Time `db:"completed_at"`
}

// CurrentRoundSettling is the sentinel CurrentRound value used while a
// round's settlement is being processed, blocking new bid admission without
// introducing a separate persisted field. It is stored with the auction row
// and is not mapped at the edges: the API's auction views and the notify
// snapshots report it as-is in currentRound, next to the state "settling".
const CurrentRoundSettling = -2

// CurrentRoundPending is the sentinel CurrentRound value before the auction's
// first round has started.
const CurrentRoundPending = -1

// IsActive checks if the auction is currently accepting bids.
func (a *Auction) IsActive() bool {
	return a.State == AuctionStateActive
}

// IsSettling checks if the auction is between rounds, processing results.
func (a *Auction) IsSettling() bool {
	return a.State == AuctionStateSettling
}

// IsCompleted checks if the auction has finished all rounds.
func (a *Auction) IsCompleted() bool {
	return a.State == AuctionStateCompleted
}

// IsTerminal checks if the auction can no longer transition.
func (a *Auction) IsTerminal() bool {
	return a.State == AuctionStateCompleted || a.State == AuctionStateCancelled
}

// CanAcceptBids checks whether a bid placed now would be admitted.
func (a *Auction) CanAcceptBids(now time.Time) bool {
	if !a.IsActive() || a.RoundEndsAt == nil {
		return false
	}
	return now.Before(*a.RoundEndsAt)
}

// HasMoreRounds reports whether CurrentRound is still below TotalRounds. It
// is also true while the last round is open, so it does not tell whether a
// later round follows the current one.
func (a *Auction) HasMoreRounds() bool {
	return a.CurrentRound < a.TotalRounds
}

// StartFirstRound transitions a pending auction into round 0.
func (a *Auction) StartFirstRound(startsAt, endsAt time.Time) {
	a.CurrentRound = 0
	a.State = AuctionStateActive
	a.RoundStartsAt = &startsAt
	a.RoundEndsAt = &endsAt
}

// AdvanceRound moves the auction to the next round, resetting its window.
func (a *Auction) AdvanceRound(startsAt, endsAt time.Time) {
	a.CurrentRound++
	a.State = AuctionStateActive
	a.RoundStartsAt = &startsAt
	a.RoundEndsAt = &endsAt
}

// EnterSettling transitions the auction into the settling sentinel state,
// blocking new bid admission while settlement for the current round runs.
func (a *Auction) EnterSettling() {
	a.State = AuctionStateSettling
	a.CurrentRound = CurrentRoundSettling
}

// IsRoundActive reports whether round r is the one currently open for bids.
func (a *Auction) IsRoundActive(r int) bool {
	return a.State == AuctionStateActive && a.CurrentRound == r
}

// Complete transitions the auction to its terminal completed state.
func (a *Auction) Complete(at time.Time) {
	a.State = AuctionStateCompleted
	a.CompletedAt = &at
	a.RoundStartsAt = nil
	a.RoundEndsAt = nil
}

// Cancel transitions the auction to its terminal cancelled state.
func (a *Auction) Cancel() {
	if a.IsTerminal() {
		return
	}
	a.State = AuctionStateCancelled
	a.RoundStartsAt = nil
	a.RoundEndsAt = nil
}

// Extend pushes the current round's end time forward, used by anti-snipe.
func (a *Auction) Extend(newEndsAt time.Time) {
	if a.RoundEndsAt == nil || newEndsAt.After(*a.RoundEndsAt) {
		a.RoundEndsAt = &newEndsAt
	}
}

// RemainingInRound returns how much time is left in the current round.
func (a *Auction) RemainingInRound(now time.Time) time.Duration {
	if a.RoundEndsAt == nil {
		return 0
	}
	remaining := a.RoundEndsAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
