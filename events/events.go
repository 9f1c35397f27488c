package events

import "auctionhouse/domain/entities"

// EventType represents the different kinds of domain events published to
// the durable audit stream.
type EventType string

const (
	EventTypeBidPlaced     EventType = "bid_placed"
	EventTypeRoundStarted  EventType = "round_started"
	EventTypeRoundExtended EventType = "round_extended"
	EventTypeRoundSettled  EventType = "round_settled"
	EventTypeAuctionEnded  EventType = "auction_ended"
	EventTypeBalanceChange EventType = "balance_change"
)

// Event is the base interface for all domain events.
type Event interface {
	Type() EventType
}

// BidPlacedEvent represents an admitted bid.
type BidPlacedEvent struct {
	AuctionID  string
	RoundIndex int
	UserID     string
	Amount     int64
	Rank       int
}

func (e BidPlacedEvent) Type() EventType { return EventTypeBidPlaced }

// RoundStartedEvent represents a round opening for bids.
type RoundStartedEvent struct {
	AuctionID  string
	RoundIndex int
	EndsAtUnix int64
}

func (e RoundStartedEvent) Type() EventType { return EventTypeRoundStarted }

// RoundExtendedEvent represents an anti-snipe extension.
type RoundExtendedEvent struct {
	AuctionID     string
	RoundIndex    int
	NewEndsAtUnix int64
	Extensions    int
}

func (e RoundExtendedEvent) Type() EventType { return EventTypeRoundExtended }

// RoundSettledEvent represents a completed settlement.
type RoundSettledEvent struct {
	AuctionID  string
	RoundIndex int
	Winners    []*entities.Winner
	Refunded   []string
}

func (e RoundSettledEvent) Type() EventType { return EventTypeRoundSettled }

// AuctionEndedEvent represents the auction completing all of its rounds.
type AuctionEndedEvent struct {
	AuctionID string
}

func (e AuctionEndedEvent) Type() EventType { return EventTypeAuctionEnded }

// BalanceChangeEvent represents a balance mutation, gambling-domain style.
type BalanceChangeEvent struct {
	UserID          string
	OldBalance      int64
	NewBalance      int64
	TransactionType entities.TransactionType
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType { return EventTypeBalanceChange }
