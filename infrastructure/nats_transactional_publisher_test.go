package infrastructure

import (
	"context"
	"testing"

	"auctionhouse/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	published []events.Event
}

func (r *recordingPublisher) Publish(event events.Event) error {
	r.published = append(r.published, event)
	return nil
}

func TestNATSTransactionalPublisher_FlushPublishesQueuedEvents(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewNATSTransactionalPublisher(rec)

	require.NoError(t, p.Publish(events.BidPlacedEvent{AuctionID: "a1"}))
	require.NoError(t, p.Publish(events.RoundStartedEvent{AuctionID: "a1"}))
	assert.Empty(t, rec.published, "nothing should reach the real publisher before flush")

	require.NoError(t, p.Flush(context.Background()))

	require.Len(t, rec.published, 2)
	assert.Equal(t, events.EventTypeBidPlaced, rec.published[0].Type())
	assert.Equal(t, events.EventTypeRoundStarted, rec.published[1].Type())
}

func TestNATSTransactionalPublisher_DiscardDropsQueuedEvents(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewNATSTransactionalPublisher(rec)

	require.NoError(t, p.Publish(events.BidPlacedEvent{AuctionID: "a1"}))
	p.Discard()

	require.NoError(t, p.Flush(context.Background()))
	assert.Empty(t, rec.published, "a discarded rollback must never reach the real publisher")
}

func TestNATSTransactionalPublisher_FlushTwiceIsANoOp(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewNATSTransactionalPublisher(rec)

	require.NoError(t, p.Publish(events.BidPlacedEvent{AuctionID: "a1"}))
	require.NoError(t, p.Flush(context.Background()))
	require.NoError(t, p.Flush(context.Background()))

	assert.Len(t, rec.published, 1)
}
