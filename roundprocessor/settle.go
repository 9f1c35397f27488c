package roundprocessor

import (
	"context"
	"fmt"
	"time"

	"auctionhouse/domain/entities"
	"auctionhouse/events"
	"auctionhouse/scheduler"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// EndRound settles one round: it ranks the fast store's standing bids,
// debits and credits winners, refunds the author for unfilled prize slots
// or a round with no bidders at all, releases every losing lock, and
// advances the auction to its next round or to completion.
//
// Every durable effect is keyed by a deterministic operation id, so a call
// that resumes after a prior attempt crashed partway through re-derives the
// same decisions and skips whatever already landed.
func (p *Processor) EndRound(ctx context.Context, auctionID string, roundIndex int) (*entities.RoundResult, error) {
	auction, round, proceed, err := p.beginSettlement(ctx, auctionID, roundIndex)
	if err != nil {
		return nil, err
	}
	if !proceed {
		return p.replaySettlement(ctx, auctionID, roundIndex)
	}

	winners, err := p.decideWinners(ctx, auction, round)
	if err != nil {
		return nil, err
	}

	if err := p.settleWinners(ctx, auctionID, roundIndex, winners); err != nil {
		return nil, err
	}

	refundedUserIDs, err := p.releaseLosingLocks(ctx, auctionID, winners)
	if err != nil {
		return nil, err
	}

	if err := p.settleRefundRows(ctx, auctionID, roundIndex, winners); err != nil {
		return nil, err
	}

	if err := p.clearFastStore(ctx, auctionID, winners, refundedUserIDs); err != nil {
		log.WithError(err).Warn("roundprocessor: failed to clear fast store after settlement")
	}

	if err := p.advance(ctx, auction, round, winners, refundedUserIDs); err != nil {
		return nil, err
	}

	p.notifier.Nudge(auctionID)

	return &entities.RoundResult{AuctionID: auctionID, RoundIndex: roundIndex, Winners: realWinners(winners), Refunded: refundedUserIDs}, nil
}

// beginSettlement loads the auction and round under a row lock and decides
// whether this call is a fresh transition into settlement, a resume of one
// already in flight, or a stale duplicate to drop.
func (p *Processor) beginSettlement(ctx context.Context, auctionID string, roundIndex int) (*entities.Auction, *entities.Round, bool, error) {
	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, false, fmt.Errorf("roundprocessor: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auction, err := uow.AuctionRepository().GetForUpdate(ctx, auctionID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("roundprocessor: failed to load auction %s: %w", auctionID, err)
	}
	if auction == nil {
		return nil, nil, false, fmt.Errorf("roundprocessor: auction %s not found", auctionID)
	}

	round, err := uow.RoundRepository().GetByAuctionAndIndex(ctx, auctionID, roundIndex)
	if err != nil {
		return nil, nil, false, fmt.Errorf("roundprocessor: failed to load round %s/%d: %w", auctionID, roundIndex, err)
	}
	if round == nil {
		return nil, nil, false, fmt.Errorf("roundprocessor: round %s/%d not found", auctionID, roundIndex)
	}

	if round.State == entities.RoundStateSettled {
		return auction, round, false, nil
	}

	if auction.State == entities.AuctionStateSettling && auction.CurrentRound == entities.CurrentRoundSettling {
		// Resuming a previous attempt that got at least as far as the
		// transition before failing.
		return auction, round, true, nil
	}

	if auction.State != entities.AuctionStateActive || auction.CurrentRound != roundIndex {
		log.WithFields(log.Fields{"auctionId": auctionID, "roundIndex": roundIndex}).Debug("end-round is a stale duplicate, dropping")
		return auction, round, false, nil
	}

	auction.EnterSettling()
	round.State = entities.RoundStateSettling
	if err := uow.AuctionRepository().Update(ctx, auction); err != nil {
		return nil, nil, false, fmt.Errorf("roundprocessor: failed to mark auction %s settling: %w", auctionID, err)
	}
	if err := uow.RoundRepository().Update(ctx, round); err != nil {
		return nil, nil, false, fmt.Errorf("roundprocessor: failed to mark round %s/%d settling: %w", auctionID, roundIndex, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, nil, false, fmt.Errorf("roundprocessor: failed to commit settling transition: %w", err)
	}

	return auction, round, true, nil
}

// replaySettlement handles a duplicate EndRound call against a round that
// already finished settling, returning the same result without touching
// any durable state a second time.
func (p *Processor) replaySettlement(ctx context.Context, auctionID string, roundIndex int) (*entities.RoundResult, error) {
	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("roundprocessor: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	winners, err := uow.WinnerRepository().GetByAuctionAndRound(ctx, auctionID, roundIndex)
	if err != nil {
		return nil, fmt.Errorf("roundprocessor: failed to replay winners for %s/%d: %w", auctionID, roundIndex, err)
	}

	return &entities.RoundResult{AuctionID: auctionID, RoundIndex: roundIndex, Winners: realWinners(winners)}, nil
}

// decideWinners returns the round's winner decision, preferring whatever was
// already saved durably over re-ranking the fast store: a resumed attempt
// must not re-derive a different ranking after the fast-store cache has
// already been cleared by a prior, partially-completed try.
func (p *Processor) decideWinners(ctx context.Context, auction *entities.Auction, round *entities.Round) ([]*entities.Winner, error) {
	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("roundprocessor: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.WinnerRepository().GetByAuctionAndRound(ctx, auction.ID, round.RoundIndex)
	if err != nil {
		return nil, fmt.Errorf("roundprocessor: failed to load existing winners for %s/%d: %w", auction.ID, round.RoundIndex, err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	ranked, err := p.bidEngine.TopBids(ctx, auction.ID, round.WinnerSlots())
	if err != nil {
		return nil, fmt.Errorf("roundprocessor: failed to rank bids for %s/%d: %w", auction.ID, round.RoundIndex, err)
	}

	now := time.Now().UTC()
	winners := make([]*entities.Winner, 0, round.WinnerSlots()+1)

	if len(ranked) == 0 {
		winners = append(winners, &entities.Winner{
			AuctionID:       auction.ID,
			RoundIndex:      round.RoundIndex,
			Place:           entities.PlaceRefund,
			UserID:          auction.AuthorID,
			PrizeGiftName:   round.PrizeGiftName,
			PrizeCount:      int64(round.TotalPrizeCount()),
			TransactionOpID: noBidderRefundOpID(auction.ID, auction.AuthorID, round.RoundIndex),
			SettledAt:       now,
		})
	} else {
		for i, rb := range ranked {
			place := i + 1
			winners = append(winners, &entities.Winner{
				AuctionID:       auction.ID,
				RoundIndex:      round.RoundIndex,
				Place:           place,
				UserID:          rb.UserID,
				Amount:          rb.Amount,
				PrizeGiftName:   round.PrizeGiftName,
				PrizeCount:      int64(round.PrizeAt(place)),
				TransactionOpID: winOpID(auction.ID, rb.UserID, round.RoundIndex, place),
				SettledAt:       now,
			})
		}

		if unclaimed := unclaimedPrizeCount(round, len(ranked)); unclaimed > 0 {
			winners = append(winners, &entities.Winner{
				AuctionID:       auction.ID,
				RoundIndex:      round.RoundIndex,
				Place:           entities.PlaceRefund,
				UserID:          auction.AuthorID,
				PrizeGiftName:   round.PrizeGiftName,
				PrizeCount:      int64(unclaimed),
				TransactionOpID: unclaimedRefundOpID(auction.ID, auction.AuthorID, round.RoundIndex),
				SettledAt:       now,
			})
		}
	}

	if err := uow.WinnerRepository().SaveAll(ctx, winners); err != nil {
		return nil, fmt.Errorf("roundprocessor: failed to save winner decision for %s/%d: %w", auction.ID, round.RoundIndex, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("roundprocessor: failed to commit winner decision for %s/%d: %w", auction.ID, round.RoundIndex, err)
	}

	return winners, nil
}

func unclaimedPrizeCount(round *entities.Round, filledSlots int) int {
	total := 0
	for place := filledSlots + 1; place <= round.WinnerSlots(); place++ {
		total += round.PrizeAt(place)
	}
	return total
}

// settleWinners applies each real winner's debit and prize credit in
// parallel, each under their own per-user lock, skipping any winner whose op
// id already landed on a prior attempt.
func (p *Processor) settleWinners(ctx context.Context, auctionID string, roundIndex int, winners []*entities.Winner) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, w := range winners {
		if w.Place == entities.PlaceRefund {
			continue
		}
		w := w
		group.Go(func() error {
			err := p.locker.WithLock(groupCtx, w.UserID, func(ctx context.Context) error {
				return p.applyWin(ctx, auctionID, w)
			})
			if err != nil {
				return fmt.Errorf("roundprocessor: failed to settle win for %s: %w", w.UserID, err)
			}
			return nil
		})
	}
	return group.Wait()
}

func (p *Processor) applyWin(ctx context.Context, auctionID string, w *entities.Winner) error {
	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	already, err := uow.TransactionRepository().GetByOpID(ctx, w.TransactionOpID)
	if err != nil {
		return fmt.Errorf("failed to check op %s: %w", w.TransactionOpID, err)
	}
	if already != nil {
		return nil
	}

	user, err := uow.UserRepository().GetByID(ctx, w.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", w.UserID, err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found", w.UserID)
	}

	newBalance := user.Balance - w.Amount
	if err := uow.UserRepository().UpdateBalance(ctx, w.UserID, newBalance); err != nil {
		return fmt.Errorf("failed to debit user %s: %w", w.UserID, err)
	}
	if err := uow.GiftRepository().AdjustHolding(ctx, w.UserID, w.PrizeGiftName, w.PrizeCount); err != nil {
		return fmt.Errorf("failed to credit prize to %s: %w", w.UserID, err)
	}
	if err := uow.TransactionRepository().SupersedeActiveLock(ctx, w.UserID, auctionID); err != nil {
		return fmt.Errorf("failed to supersede lock for %s: %w", w.UserID, err)
	}

	tx := &entities.Transaction{
		OpID: w.TransactionOpID, UserID: w.UserID, AuctionID: auctionID, RoundIndex: w.RoundIndex,
		Type: entities.TransactionTypeWin, Status: entities.TransactionStatusSettled, Amount: w.Amount,
	}
	if err := uow.TransactionRepository().Upsert(ctx, tx); err != nil {
		return fmt.Errorf("failed to upsert win %s: %w", w.TransactionOpID, err)
	}

	if err := uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID: w.UserID, OldBalance: user.Balance, NewBalance: newBalance,
		TransactionType: entities.TransactionTypeWin, ChangeAmount: -w.Amount,
	}); err != nil {
		log.WithError(err).Warn("roundprocessor: failed to publish balance change event")
	}

	return uow.Commit()
}

// releaseLosingLocks supersedes every active lock on the auction that did
// not finish as a real winner, returning the affected user ids.
func (p *Processor) releaseLosingLocks(ctx context.Context, auctionID string, winners []*entities.Winner) ([]string, error) {
	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("roundprocessor: failed to begin transaction: %w", err)
	}

	locks, err := uow.TransactionRepository().GetActiveLocksByAuction(ctx, auctionID)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("roundprocessor: failed to load active locks for %s: %w", auctionID, err)
	}

	winnerIDs := make(map[string]bool, len(winners))
	for _, w := range winners {
		if w.Place != entities.PlaceRefund {
			winnerIDs[w.UserID] = true
		}
	}

	var losers []string
	for _, lock := range locks {
		if winnerIDs[lock.UserID] {
			continue
		}
		lock := lock
		err := p.locker.WithLock(ctx, lock.UserID, func(ctx context.Context) error {
			return p.releaseOneLock(ctx, lock.UserID, auctionID)
		})
		if err != nil {
			return losers, fmt.Errorf("roundprocessor: failed to release lock for %s: %w", lock.UserID, err)
		}
		losers = append(losers, lock.UserID)
	}

	return losers, nil
}

func (p *Processor) releaseOneLock(ctx context.Context, userID, auctionID string) error {
	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TransactionRepository().SupersedeActiveLock(ctx, userID, auctionID); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return uow.Commit()
}

// settleRefundRows credits the auction author for any refund winner rows
// (no bidders, or unfilled prize slots), each gated by its own op id.
func (p *Processor) settleRefundRows(ctx context.Context, auctionID string, roundIndex int, winners []*entities.Winner) error {
	for _, w := range winners {
		if w.Place != entities.PlaceRefund {
			continue
		}
		w := w
		err := p.locker.WithLock(ctx, w.UserID, func(ctx context.Context) error {
			return p.applyRefund(ctx, auctionID, roundIndex, w)
		})
		if err != nil {
			return fmt.Errorf("roundprocessor: failed to settle refund for %s: %w", w.UserID, err)
		}
	}
	return nil
}

func (p *Processor) applyRefund(ctx context.Context, auctionID string, roundIndex int, w *entities.Winner) error {
	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	already, err := uow.TransactionRepository().GetByOpID(ctx, w.TransactionOpID)
	if err != nil {
		return fmt.Errorf("failed to check op %s: %w", w.TransactionOpID, err)
	}
	if already != nil {
		return nil
	}

	if err := uow.GiftRepository().AdjustHolding(ctx, w.UserID, w.PrizeGiftName, w.PrizeCount); err != nil {
		return fmt.Errorf("failed to refund gifts to %s: %w", w.UserID, err)
	}

	tx := &entities.Transaction{
		OpID: w.TransactionOpID, UserID: w.UserID, AuctionID: auctionID, RoundIndex: roundIndex,
		Type: entities.TransactionTypeRefund, Status: entities.TransactionStatusSettled, Amount: w.PrizeCount,
	}
	if err := uow.TransactionRepository().Upsert(ctx, tx); err != nil {
		return fmt.Errorf("failed to upsert refund %s: %w", w.TransactionOpID, err)
	}

	return uow.Commit()
}

func (p *Processor) clearFastStore(ctx context.Context, auctionID string, winners []*entities.Winner, losers []string) error {
	userIDs := make([]string, 0, len(winners)+len(losers))
	for _, w := range winners {
		if w.Place != entities.PlaceRefund {
			userIDs = append(userIDs, w.UserID)
		}
	}
	userIDs = append(userIDs, losers...)
	return p.bidEngine.ClearAuction(ctx, auctionID, userIDs)
}

// advance marks the round settled and moves the auction into its next round
// or to completion, scheduling the next round's end job directly: only the
// auction's very first round is ever opened from a scheduled job, since
// every later round's real window is only known once its predecessor
// actually finishes here.
func (p *Processor) advance(ctx context.Context, auction *entities.Auction, round *entities.Round, winners []*entities.Winner, refunded []string) error {
	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("roundprocessor: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := time.Now().UTC()
	round.Settle(now)
	if err := uow.RoundRepository().Update(ctx, round); err != nil {
		return fmt.Errorf("roundprocessor: failed to settle round %s/%d: %w", auction.ID, round.RoundIndex, err)
	}

	var nextEndsAt time.Time
	hasNext := round.RoundIndex+1 < auction.TotalRounds

	if hasNext {
		nextRound, err := uow.RoundRepository().GetByAuctionAndIndex(ctx, auction.ID, round.RoundIndex+1)
		if err != nil {
			return fmt.Errorf("roundprocessor: failed to load next round %s/%d: %w", auction.ID, round.RoundIndex+1, err)
		}
		if nextRound == nil {
			return fmt.Errorf("roundprocessor: next round %s/%d missing", auction.ID, round.RoundIndex+1)
		}

		nextEndsAt = now.Add(nextRound.Duration())
		auction.CurrentRound = round.RoundIndex
		auction.AdvanceRound(now, nextEndsAt)

		nextRound.State = entities.RoundStateOpen
		nextRound.StartsAt = now
		nextRound.EndsAt = nextEndsAt
		if err := uow.RoundRepository().Update(ctx, nextRound); err != nil {
			return fmt.Errorf("roundprocessor: failed to open next round %s/%d: %w", auction.ID, nextRound.RoundIndex, err)
		}
	} else {
		auction.CurrentRound = round.RoundIndex
		auction.Complete(now)
	}

	if err := uow.AuctionRepository().Update(ctx, auction); err != nil {
		return fmt.Errorf("roundprocessor: failed to update auction %s: %w", auction.ID, err)
	}

	if err := uow.EventBus().Publish(events.RoundSettledEvent{AuctionID: auction.ID, RoundIndex: round.RoundIndex, Winners: realWinners(winners), Refunded: refunded}); err != nil {
		log.WithError(err).Warn("roundprocessor: failed to publish round settled event")
	}
	if !hasNext {
		if err := uow.EventBus().Publish(events.AuctionEndedEvent{AuctionID: auction.ID}); err != nil {
			log.WithError(err).Warn("roundprocessor: failed to publish auction ended event")
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("roundprocessor: failed to commit round advance: %w", err)
	}

	if hasNext {
		if err := p.scheduler.ScheduleRoundEnd(ctx, auction.ID, round.RoundIndex+1, nextEndsAt.Unix()); err != nil {
			return fmt.Errorf("roundprocessor: failed to schedule next round end: %w", err)
		}
	}

	return nil
}

func realWinners(winners []*entities.Winner) []*entities.Winner {
	out := make([]*entities.Winner, 0, len(winners))
	for _, w := range winners {
		if w.Place != entities.PlaceRefund {
			out = append(out, w)
		}
	}
	return out
}

// ExtendRound applies one anti-snipe extension if the round's real deadline
// (read back from the scheduler, not from in-memory state) is within the
// trigger window and the round's extension budget is not exhausted.
func (p *Processor) ExtendRound(ctx context.Context, auctionID string, roundIndex int) (bool, error) {
	jobID := scheduler.EndRoundJobID(auctionID, roundIndex)

	job, err := p.scheduler.GetJob(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("roundprocessor: failed to load end-round job %s: %w", jobID, err)
	}
	if job == nil {
		return false, nil
	}

	remaining := time.Until(job.RunAt)
	if remaining > p.triggerWindow {
		return false, nil
	}

	ok, err := p.antiSnipe.tryExtend(ctx, auctionID, roundIndex, p.maxExtensions, antiSnipeCounterTTL)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	newEndsAt := time.Now().UTC().Add(p.extension)

	uow := p.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("roundprocessor: failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auction, err := uow.AuctionRepository().GetForUpdate(ctx, auctionID)
	if err != nil {
		return false, fmt.Errorf("roundprocessor: failed to load auction %s: %w", auctionID, err)
	}
	if auction == nil || !auction.IsRoundActive(roundIndex) {
		return false, nil
	}

	round, err := uow.RoundRepository().GetByAuctionAndIndex(ctx, auctionID, roundIndex)
	if err != nil {
		return false, fmt.Errorf("roundprocessor: failed to load round %s/%d: %w", auctionID, roundIndex, err)
	}
	if round == nil || !round.IsOpen() {
		return false, nil
	}

	round.Extend(newEndsAt)
	auction.Extend(newEndsAt)

	if err := uow.RoundRepository().Update(ctx, round); err != nil {
		return false, fmt.Errorf("roundprocessor: failed to persist round extension %s/%d: %w", auctionID, roundIndex, err)
	}
	if err := uow.AuctionRepository().Update(ctx, auction); err != nil {
		return false, fmt.Errorf("roundprocessor: failed to persist auction extension %s: %w", auctionID, err)
	}
	if err := uow.EventBus().Publish(events.RoundExtendedEvent{AuctionID: auctionID, RoundIndex: roundIndex, NewEndsAtUnix: newEndsAt.Unix(), Extensions: round.Extensions}); err != nil {
		log.WithError(err).Warn("roundprocessor: failed to publish round extended event")
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("roundprocessor: failed to commit round extension: %w", err)
	}

	if err := p.scheduler.Reschedule(ctx, jobID, newEndsAt.Unix()); err != nil {
		return false, fmt.Errorf("roundprocessor: failed to reschedule %s: %w", jobID, err)
	}

	p.notifier.Nudge(auctionID)

	return true, nil
}
