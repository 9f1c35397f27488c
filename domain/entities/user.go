package entities

import (
	"errors"
	"time"
)

// User represents a bidder tracked by the auction house.
type User struct {
	ID               string    `db:"id"`
	Balance          int64     `db:"balance"`
	AvailableBalance int64     `db:"-"` // Balance minus amounts locked in active bids
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// CanAfford checks if the user has sufficient available balance for an amount.
func (u *User) CanAfford(amount int64) bool {
	return u.AvailableBalance >= amount
}

// HasPositiveBalance checks if the user has a positive balance.
func (u *User) HasPositiveBalance() bool {
	return u.Balance > 0
}

// HasSufficientBalance checks if the user has sufficient total balance for an amount.
func (u *User) HasSufficientBalance(amount int64) bool {
	return u.Balance >= amount
}

// ValidateAmount checks if an amount is valid (positive and affordable).
func (u *User) ValidateAmount(amount int64) error {
	if amount <= 0 {
		return errors.New("amount must be positive")
	}
	if !u.CanAfford(amount) {
		return errors.New("insufficient available balance")
	}
	return nil
}

// GetLockedAmount calculates the amount tied up in active bids.
func (u *User) GetLockedAmount() int64 {
	return u.Balance - u.AvailableBalance
}

// HasAvailableBalance checks if the user has any available balance.
func (u *User) HasAvailableBalance() bool {
	return u.AvailableBalance > 0
}

// CalculateNewBalance calculates what the balance would be after a change.
func (u *User) CalculateNewBalance(changeAmount int64) int64 {
	return u.Balance + changeAmount
}

// CalculateNewAvailableBalance calculates what the available balance would be after a change.
func (u *User) CalculateNewAvailableBalance(changeAmount int64) int64 {
	return u.AvailableBalance + changeAmount
}

// GiftLot is a quantity of a named gift a user owns, either in inventory or
// as an auction's prize pool.
type GiftLot struct {
	Name  string `db:"gift_name"`
	Count int64  `db:"count"`
}

// Validate enforces that a gift lot never carries a negative count.
func (g *GiftLot) Validate() error {
	if g.Count < 0 {
		return errors.New("gift count cannot be negative")
	}
	return nil
}
