package infrastructure

import (
	"testing"

	"auctionhouse/events"

	"github.com/stretchr/testify/assert"
)

func TestEventSubjectMapper_MapEventToSubject(t *testing.T) {
	m := NewEventSubjectMapper()

	assert.Equal(t, "auction.bids.placed", m.MapEventToSubject(events.BidPlacedEvent{}))
	assert.Equal(t, "auction.rounds.started", m.MapEventToSubject(events.RoundStartedEvent{}))
	assert.Equal(t, "auction.rounds.extended", m.MapEventToSubject(events.RoundExtendedEvent{}))
	assert.Equal(t, "auction.rounds.settled", m.MapEventToSubject(events.RoundSettledEvent{}))
	assert.Equal(t, "auction.ended", m.MapEventToSubject(events.AuctionEndedEvent{}))
	assert.Equal(t, "users.balance_changed", m.MapEventToSubject(events.BalanceChangeEvent{}))
}

func TestEventSubjectMapper_RoundTripsEverySubject(t *testing.T) {
	m := NewEventSubjectMapper()

	for _, subject := range m.GetAllSubjects() {
		eventType := m.MapSubjectToEventType(subject)
		assert.NotEmpty(t, eventType)
	}
}

func TestEventSubjectMapper_UnknownSubjectIsPreservedVerbatim(t *testing.T) {
	m := NewEventSubjectMapper()

	got := m.MapSubjectToEventType("something.unmapped")
	assert.Equal(t, events.EventType("something.unmapped"), got)
}
