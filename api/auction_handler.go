package api

import (
	"encoding/json"
	"time"

	"auctionhouse/domain/entities"
	"auctionhouse/domain/interfaces"
	"auctionhouse/infrastructure/idempotency"
	"auctionhouse/scheduler"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const createAuctionScope = "createAuction"

type createAuctionRound struct {
	Duration int   `json:"duration"`
	Prizes   []int `json:"prizes"`
}

type createAuctionRequest struct {
	Name      string               `json:"name"`
	GiftName  string               `json:"giftName"`
	GiftCount int64                `json:"giftCount"`
	StartTime int64                `json:"startTime"`
	Rounds    []createAuctionRound `json:"rounds"`
}

type auctionView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AuthorID     string `json:"authorId"`
	GiftName     string `json:"giftName"`
	State        string `json:"state"`
	TotalRounds  int    `json:"totalRounds"`
	CurrentRound int    `json:"currentRound"`
	RoundEndsAt  *int64 `json:"roundEndsAt,omitempty"`
}

func toAuctionView(a *entities.Auction) auctionView {
	v := auctionView{
		ID:           a.ID,
		Name:         a.Title,
		AuthorID:     a.AuthorID,
		GiftName:     a.PrizeGiftName,
		State:        string(a.State),
		TotalRounds:  a.TotalRounds,
		CurrentRound: a.CurrentRound,
	}
	if a.RoundEndsAt != nil {
		unix := a.RoundEndsAt.Unix()
		v.RoundEndsAt = &unix
	}
	return v
}

type createAuctionResponse struct {
	Success    bool        `json:"success"`
	Idempotent bool        `json:"idempotent"`
	Auction    auctionView `json:"auction"`
}

func (s *Server) createAuction(c *fiber.Ctx) error {
	ctx := c.Context()

	userID, ok := callerID(c)
	if !ok {
		return sendError(c, errUserNotProvided)
	}
	idemKey, ok := idempotencyKey(c)
	if !ok {
		return sendError(c, errInvalidIdempotencyKey)
	}

	reserved, cached, err := s.idem.Reserve(ctx, createAuctionScope, idemKey)
	if err != nil {
		if err == idempotency.ErrInProgress {
			return sendError(c, errIdempotencyConflict)
		}
		return sendError(c, errInternal)
	}
	if !reserved {
		var resp createAuctionResponse
		if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
			resp.Idempotent = true
			return sendJSON(c, fiber.StatusOK, resp)
		}
		return sendError(c, errInternal)
	}

	var req createAuctionRequest
	if parseErr := c.BodyParser(&req); parseErr != nil {
		s.idem.Release(ctx, createAuctionScope, idemKey)
		return sendError(c, errInvalidName)
	}

	if apiErr := validateCreateAuctionRequest(req); apiErr != nil {
		s.idem.Release(ctx, createAuctionScope, idemKey)
		return sendError(c, *apiErr)
	}

	startTime := time.Unix(req.StartTime, 0).UTC()

	auction := &entities.Auction{
		ID:            uuid.NewString(),
		Title:         req.Name,
		AuthorID:      userID,
		PrizeGiftName: req.GiftName,
		State:         entities.AuctionStateScheduled,
		TotalRounds:   len(req.Rounds),
		CurrentRound:  entities.CurrentRoundPending,
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		s.idem.Release(ctx, createAuctionScope, idemKey)
		return sendError(c, errInternal)
	}

	holding, err := uow.GiftRepository().GetHolding(ctx, userID, req.GiftName)
	if err != nil {
		uow.Rollback()
		s.idem.Release(ctx, createAuctionScope, idemKey)
		return sendError(c, errInternal)
	}
	if holding.Count < req.GiftCount {
		uow.Rollback()
		s.idem.Release(ctx, createAuctionScope, idemKey)
		return sendError(c, errInsufficientGifts)
	}

	if err := uow.GiftRepository().AdjustHolding(ctx, userID, req.GiftName, -req.GiftCount); err != nil {
		uow.Rollback()
		s.idem.Release(ctx, createAuctionScope, idemKey)
		return sendError(c, errInsufficientGifts)
	}

	if err := uow.AuctionRepository().Create(ctx, auction); err != nil {
		uow.Rollback()
		s.idem.Release(ctx, createAuctionScope, idemKey)
		return sendError(c, errInternal)
	}

	for i, rd := range req.Rounds {
		round := &entities.Round{
			AuctionID:       auction.ID,
			RoundIndex:      i,
			PrizeGiftName:   req.GiftName,
			Prizes:          rd.Prizes,
			DurationSeconds: rd.Duration,
			State:           entities.RoundStateScheduled,
			StartsAt:        startTime,
			EndsAt:          startTime,
		}
		if err := uow.RoundRepository().Create(ctx, round); err != nil {
			uow.Rollback()
			s.idem.Release(ctx, createAuctionScope, idemKey)
			return sendError(c, errInternal)
		}
	}

	jobPayload, _ := json.Marshal(struct {
		AuctionID  string `json:"auctionId"`
		RoundIndex int    `json:"roundIndex"`
	}{AuctionID: auction.ID, RoundIndex: 0})

	jobID := scheduler.StartRoundJobID(auction.ID, 0)
	if err := uow.ScheduledJobRepository().Schedule(ctx, jobID, string(entities.JobTypeRoundStart), string(jobPayload), startTime); err != nil {
		uow.Rollback()
		s.idem.Release(ctx, createAuctionScope, idemKey)
		return sendError(c, errInternal)
	}

	if err := uow.Commit(); err != nil {
		s.idem.Release(ctx, createAuctionScope, idemKey)
		return sendError(c, errInternal)
	}

	resp := createAuctionResponse{Success: true, Idempotent: false, Auction: toAuctionView(auction)}
	if body, err := json.Marshal(resp); err == nil {
		s.idem.Save(ctx, createAuctionScope, idemKey, body)
	}

	return sendJSON(c, fiber.StatusOK, resp)
}

func validateCreateAuctionRequest(req createAuctionRequest) *apiError {
	if req.Name == "" {
		return &errInvalidName
	}
	if req.GiftName == "" {
		return &errInvalidGiftName
	}
	if req.GiftCount <= 0 {
		return &errInvalidGiftCount
	}
	if req.StartTime <= 0 {
		return &errInvalidStartTime
	}
	if len(req.Rounds) == 0 {
		return &errInvalidRounds
	}

	var totalPrizes int64
	for _, rd := range req.Rounds {
		if rd.Duration <= 0 || len(rd.Prizes) == 0 {
			return &errInvalidRounds
		}
		for _, p := range rd.Prizes {
			if p <= 0 {
				return &errInvalidRounds
			}
			totalPrizes += int64(p)
		}
	}
	if totalPrizes != req.GiftCount {
		return &errInvalidRounds
	}
	return nil
}

func (s *Server) getAuctions(c *fiber.Ctx) error {
	ctx := c.Context()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return sendError(c, errInternal)
	}
	auctions, err := uow.AuctionRepository().GetActive(ctx)
	uow.Rollback()
	if err != nil {
		return sendError(c, errInternal)
	}

	views := make([]auctionView, 0, len(auctions))
	for _, a := range auctions {
		views = append(views, toAuctionView(a))
	}
	return sendJSON(c, fiber.StatusOK, fiber.Map{"auctions": views})
}

func (s *Server) getAuction(c *fiber.Ctx) error {
	ctx := c.Context()
	auctionID := c.Params("id")

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return sendError(c, errInternal)
	}
	auction, err := uow.AuctionRepository().GetByID(ctx, auctionID)
	if err != nil {
		uow.Rollback()
		return sendError(c, errInternal)
	}
	if auction == nil {
		uow.Rollback()
		return sendError(c, errAuctionNotFound)
	}
	locks, err := uow.TransactionRepository().GetActiveLocksByAuction(ctx, auctionID)
	uow.Rollback()
	if err != nil {
		return sendError(c, errInternal)
	}

	return sendJSON(c, fiber.StatusOK, fiber.Map{
		"auction":           toAuctionView(auction),
		"participantsCount": len(locks),
	})
}

func (s *Server) getAuctionBets(c *fiber.Ctx) error {
	ctx := c.Context()
	auctionID := c.Params("id")

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	ranked, err := s.bidEngine.TopBids(ctx, auctionID, limit)
	if err != nil {
		return sendError(c, errInternal)
	}

	return sendJSON(c, fiber.StatusOK, fiber.Map{"bets": toBidSummaryViews(ranked)})
}

func (s *Server) getMyBet(c *fiber.Ctx) error {
	ctx := c.Context()
	auctionID := c.Params("id")

	userID, ok := callerID(c)
	if !ok {
		return sendError(c, errUserNotProvided)
	}

	bid, err := s.bidEngine.UserBid(ctx, auctionID, userID)
	if err != nil {
		return sendError(c, errInternal)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return sendError(c, errInternal)
	}
	locks, err := uow.TransactionRepository().GetActiveLocksByAuction(ctx, auctionID)
	uow.Rollback()
	if err != nil {
		return sendError(c, errInternal)
	}

	if bid == nil {
		return sendJSON(c, fiber.StatusOK, fiber.Map{"bet": nil, "rank": nil, "totalParticipants": len(locks)})
	}

	return sendJSON(c, fiber.StatusOK, fiber.Map{
		"bet":               bid.Amount,
		"rank":              bid.Rank,
		"totalParticipants": len(locks),
	})
}

type bidView struct {
	UserID     string `json:"userId"`
	Amount     int64  `json:"amount"`
	Rank       int    `json:"rank"`
	FirstBidAt int64  `json:"firstBidAt"`
}

func toBidSummaryViews(ranked []*interfaces.RankedBid) []bidView {
	out := make([]bidView, 0, len(ranked))
	for _, rb := range ranked {
		out = append(out, bidView{UserID: rb.UserID, Amount: rb.Amount, Rank: rb.Rank, FirstBidAt: rb.FirstBidAt})
	}
	return out
}
