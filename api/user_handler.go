package api

import (
	"github.com/gofiber/fiber/v2"
)

type balanceResponse struct {
	Balance   int64 `json:"balance"`
	Available int64 `json:"available"`
	Locked    int64 `json:"locked"`
}

func (s *Server) getUserBalance(c *fiber.Ctx) error {
	ctx := c.Context()

	userID, ok := callerID(c)
	if !ok {
		return sendError(c, errUserNotProvided)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return sendError(c, errInternal)
	}
	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		uow.Rollback()
		return sendError(c, errInternal)
	}
	if user == nil {
		uow.Rollback()
		return sendError(c, errUserNotProvided)
	}
	locked, err := uow.TransactionRepository().LockedAmount(ctx, userID)
	uow.Rollback()
	if err != nil {
		return sendError(c, errInternal)
	}

	return sendJSON(c, fiber.StatusOK, balanceResponse{
		Balance:   user.Balance,
		Available: user.Balance - locked,
		Locked:    locked,
	})
}

type debugMintRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
}

// debugMint credits stars out of thin air, gated behind ENABLE_DEBUG_MINT so
// it only ever exists on a development deployment.
func (s *Server) debugMint(c *fiber.Ctx) error {
	ctx := c.Context()

	var req debugMintRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.Amount <= 0 {
		return sendError(c, errInvalidStarsAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return sendError(c, errInternal)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, req.UserID)
	if err != nil {
		return sendError(c, errInternal)
	}
	if user == nil {
		user, err = uow.UserRepository().Create(ctx, req.UserID, req.Amount)
	} else {
		err = uow.UserRepository().UpdateBalance(ctx, req.UserID, user.Balance+req.Amount)
	}
	if err != nil {
		return sendError(c, errInternal)
	}

	if err := uow.Commit(); err != nil {
		return sendError(c, errInternal)
	}

	return sendJSON(c, fiber.StatusOK, fiber.Map{"success": true})
}
