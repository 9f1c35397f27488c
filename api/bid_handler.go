package api

import (
	"context"
	"errors"

	"auctionhouse/domain/interfaces"
	"auctionhouse/events"
	"auctionhouse/infrastructure/redismutex"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type placeBidRequest struct {
	AuctionID string `json:"auctionId"`
	Stars     int64  `json:"stars"`
}

type placeBidResponse struct {
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	Idempotent  bool   `json:"idempotent"`
	Bet         int64  `json:"bet"`
	PreviousBet int64  `json:"previousBet"`
	Charged     int64  `json:"charged"`
	Extended    bool   `json:"extended"`
}

func (s *Server) placeBid(c *fiber.Ctx) error {
	ctx := c.Context()

	userID, ok := callerID(c)
	if !ok {
		return sendError(c, errUserNotProvided)
	}

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return sendError(c, errInvalidIdempotencyKey)
	}

	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil || req.AuctionID == "" {
		return sendError(c, errInvalidAuctionID)
	}
	if req.Stars <= 0 {
		return sendError(c, errInvalidStarsAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return sendError(c, errInternal)
	}
	auction, err := uow.AuctionRepository().GetByID(ctx, req.AuctionID)
	uow.Rollback()
	if err != nil {
		return sendError(c, errInternal)
	}
	if auction == nil {
		return sendError(c, errAuctionNotFound)
	}
	if auction.AuthorID == userID {
		return sendError(c, errCannotBetOwnAuction)
	}

	var outcome *interfaces.BidOutcome

	lockErr := s.locker.WithLock(ctx, userID, func(ctx context.Context) error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		current, err := uow.AuctionRepository().GetByID(ctx, req.AuctionID)
		if err != nil {
			return err
		}
		if current == nil || !current.CanAcceptBids(nowFunc()) {
			return errDomainAuctionNotActive
		}

		user, err := uow.UserRepository().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return errDomainAuctionNotActive
		}

		locked, err := uow.TransactionRepository().LockedAmount(ctx, userID)
		if err != nil {
			return err
		}
		availableBalance := user.Balance - locked

		out, err := s.bidEngine.PlaceBid(ctx, req.AuctionID, userID, req.Stars, availableBalance, idemKey)
		if err != nil {
			return err
		}
		outcome = out

		if out.Status == interfaces.BidOutcomeOK {
			if out.PreviousAmount == 0 {
				if err := s.ledger.LockBid(ctx, idemKey, userID, req.AuctionID, current.CurrentRound, out.Amount); err != nil {
					return err
				}
			} else {
				if err := s.ledger.IncreaseLock(ctx, idemKey, userID, req.AuctionID, current.CurrentRound, out.Amount); err != nil {
					return err
				}
			}
			if err := uow.EventBus().Publish(events.BidPlacedEvent{
				AuctionID: req.AuctionID, RoundIndex: current.CurrentRound, UserID: userID, Amount: out.Amount, Rank: out.Rank,
			}); err != nil {
				log.WithError(err).Warn("api: failed to publish bid placed event")
			}
		}

		return uow.Commit()
	})

	if lockErr != nil {
		if errors.Is(lockErr, redismutex.ErrAcquireTimeout) {
			return sendError(c, errTooManyRequests)
		}
		if errors.Is(lockErr, errDomainAuctionNotActive) {
			return sendError(c, errAuctionNotActive)
		}
		return sendError(c, errInternal)
	}

	extended := false
	if outcome.Status == interfaces.BidOutcomeOK {
		s.notifier.Nudge(req.AuctionID)
		if didExtend, err := s.processor.ExtendRound(ctx, req.AuctionID, auction.CurrentRound); err == nil {
			extended = didExtend
		}
	}

	switch outcome.Status {
	case interfaces.BidOutcomeOK, interfaces.BidOutcomeSame:
		return sendJSON(c, fiber.StatusOK, placeBidResponse{
			Success:     true,
			Status:      string(outcome.Status),
			Idempotent:  outcome.Idempotent,
			Bet:         outcome.Amount,
			PreviousBet: outcome.PreviousAmount,
			Charged:     outcome.Diff,
			Extended:    extended,
		})
	case interfaces.BidOutcomeCannotDecrease:
		return sendError(c, errCannotDecrease)
	case interfaces.BidOutcomeInsufficientBalance:
		return sendError(c, errInsufficientBalance)
	default:
		return sendError(c, errAuctionNotActive)
	}
}
