package infrastructure

import (
	"context"

	"auctionhouse/domain/interfaces"
	"auctionhouse/events"

	log "github.com/sirupsen/logrus"
)

// NATSTransactionalPublisher holds events until flush, then publishes them to
// NATS. This keeps the durable audit stream consistent with the database
// transaction that produced the events: nothing is published until the
// owning unit of work commits, and nothing survives a rollback.
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	pending       []events.Event
}

var _ interfaces.TransactionalEventPublisher = (*NATSTransactionalPublisher)(nil)

// NewNATSTransactionalPublisher creates a new transactional publisher.
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) *NATSTransactionalPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
	}
}

// Publish stores an event in the pending queue without publishing it yet.
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"pendingCount": len(p.pending),
	}).Debug("queued event for transactional publish")

	p.pending = append(p.pending, event)
	return nil
}

// Flush publishes all pending events to NATS. Call after a transaction commits.
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(p.pending),
	}).Debug("flushing pending events")

	for _, event := range p.pending {
		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("failed to publish event during flush")
		}
	}

	p.pending = p.pending[:0]
	return nil
}

// Discard clears all pending events without publishing them. Call on rollback.
func (p *NATSTransactionalPublisher) Discard() {
	p.pending = p.pending[:0]
}
