// Package roundprocessor drives the auction state machine: opening rounds,
// extending them under anti-snipe pressure, and settling them into winner
// and refund records. Every settlement action keys its durable write by a
// deterministic operation id so a job retried after a partial failure never
// produces a duplicate effect.
package roundprocessor

import (
	"context"
	"fmt"
	"time"

	"auctionhouse/domain/entities"
	"auctionhouse/domain/interfaces"
	"auctionhouse/events"
	"auctionhouse/infrastructure/redismutex"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// antiSnipeCounterTTL bounds how long an anti-snipe extension counter
// survives on the fast store; far longer than any round can realistically
// run, it only exists so an abandoned auction's counters eventually expire.
const antiSnipeCounterTTL = time.Hour

// Processor implements interfaces.RoundProcessor.
type Processor struct {
	uowFactory    interfaces.UnitOfWorkFactory
	bidEngine     interfaces.BidEngine
	scheduler     interfaces.Scheduler
	locker        *redismutex.Locker
	notifier      interfaces.NotificationBus
	antiSnipe     *antiSnipeCounter
	triggerWindow time.Duration
	extension     time.Duration
	maxExtensions int
}

// Config carries the anti-snipe thresholds, defaulted by config.Config.
type Config struct {
	TriggerWindow time.Duration
	Extension     time.Duration
	MaxExtensions int
}

// New creates a new round Processor.
func New(uowFactory interfaces.UnitOfWorkFactory, bidEngine interfaces.BidEngine, scheduler interfaces.Scheduler, locker *redismutex.Locker, notifier interfaces.NotificationBus, redisClient *redis.Client, cfg Config) *Processor {
	return &Processor{
		uowFactory:    uowFactory,
		bidEngine:     bidEngine,
		scheduler:     scheduler,
		locker:        locker,
		notifier:      notifier,
		antiSnipe:     newAntiSnipeCounter(redisClient),
		triggerWindow: cfg.TriggerWindow,
		extension:     cfg.Extension,
		maxExtensions: cfg.MaxExtensions,
	}
}

// StartRound transitions a pending auction into its first round. Only round
// 0 ever reaches this path: later rounds are opened directly by EndRound's
// settlement advance, since their real start time depends on when their
// predecessor actually finishes, not on a time fixed at creation.
func (p *Processor) StartRound(ctx context.Context, auctionID string, roundIndex int) error {
	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("roundprocessor: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auction, err := uow.AuctionRepository().GetForUpdate(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("roundprocessor: failed to load auction %s: %w", auctionID, err)
	}
	if auction == nil {
		return fmt.Errorf("roundprocessor: auction %s not found", auctionID)
	}

	// Idempotent: a duplicate start-round fire observes the auction already
	// past PENDING and is dropped.
	if auction.State != entities.AuctionStateScheduled || auction.CurrentRound != entities.CurrentRoundPending {
		log.WithFields(log.Fields{"auctionId": auctionID, "roundIndex": roundIndex}).Debug("start-round is a duplicate, dropping")
		return nil
	}

	round, err := uow.RoundRepository().GetByAuctionAndIndex(ctx, auctionID, roundIndex)
	if err != nil {
		return fmt.Errorf("roundprocessor: failed to load round %s/%d: %w", auctionID, roundIndex, err)
	}
	if round == nil {
		return fmt.Errorf("roundprocessor: round %s/%d not found", auctionID, roundIndex)
	}

	now := time.Now().UTC()
	endsAt := now.Add(round.Duration())

	auction.StartFirstRound(now, endsAt)
	if err := uow.AuctionRepository().Update(ctx, auction); err != nil {
		return fmt.Errorf("roundprocessor: failed to update auction %s: %w", auctionID, err)
	}

	round.State = entities.RoundStateOpen
	round.StartsAt = now
	round.EndsAt = endsAt
	if err := uow.RoundRepository().Update(ctx, round); err != nil {
		return fmt.Errorf("roundprocessor: failed to update round %s/%d: %w", auctionID, roundIndex, err)
	}

	if err := uow.EventBus().Publish(events.RoundStartedEvent{AuctionID: auctionID, RoundIndex: roundIndex, EndsAtUnix: endsAt.Unix()}); err != nil {
		log.WithError(err).Warn("roundprocessor: failed to publish round started event")
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("roundprocessor: failed to commit round start: %w", err)
	}

	if err := p.scheduler.ScheduleRoundEnd(ctx, auctionID, roundIndex, endsAt.Unix()); err != nil {
		return fmt.Errorf("roundprocessor: failed to schedule round end for %s/%d: %w", auctionID, roundIndex, err)
	}

	p.notifier.Nudge(auctionID)

	log.WithFields(log.Fields{"auctionId": auctionID, "roundIndex": roundIndex, "endsAt": endsAt}).Info("round started")
	return nil
}

func winOpID(auctionID, userID string, roundIndex, place int) string {
	return fmt.Sprintf("%s:%s:win:%d:place%d", auctionID, userID, roundIndex, place)
}

func noBidderRefundOpID(auctionID, authorID string, roundIndex int) string {
	return fmt.Sprintf("%s:%s:win:%d:place-0-refund", auctionID, authorID, roundIndex)
}

func unclaimedRefundOpID(auctionID, authorID string, roundIndex int) string {
	return fmt.Sprintf("%s:%s:unclaimed:%d", auctionID, authorID, roundIndex)
}
