package infrastructure

import (
	"fmt"

	"auctionhouse/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects.
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper.
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject.
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeBidPlaced:
		return "auction.bids.placed"
	case events.EventTypeRoundStarted:
		return "auction.rounds.started"
	case events.EventTypeRoundExtended:
		return "auction.rounds.extended"
	case events.EventTypeRoundSettled:
		return "auction.rounds.settled"
	case events.EventTypeAuctionEnded:
		return "auction.ended"
	case events.EventTypeBalanceChange:
		return "users.balance_changed"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type.
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "auction.bids.placed":
		return events.EventTypeBidPlaced
	case "auction.rounds.started":
		return events.EventTypeRoundStarted
	case "auction.rounds.extended":
		return events.EventTypeRoundExtended
	case "auction.rounds.settled":
		return events.EventTypeRoundSettled
	case "auction.ended":
		return events.EventTypeAuctionEnded
	case "users.balance_changed":
		return events.EventTypeBalanceChange
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to.
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"auction.bids.placed",
		"auction.rounds.started",
		"auction.rounds.extended",
		"auction.rounds.settled",
		"auction.ended",
		"users.balance_changed",
	}
}
