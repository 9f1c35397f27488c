package api

import "github.com/gofiber/fiber/v2"

// apiError is the stable, client-facing error shape: a short machine-readable
// code plus an HTTP status, never a raw Go error string.
type apiError struct {
	status int
	code   string
}

func (e apiError) toFiber() error {
	return fiber.NewError(e.status, e.code)
}

var (
	errUserNotProvided       = apiError{fiber.StatusUnauthorized, "USER_NOT_PROVIDED"}
	errInvalidIdempotencyKey = apiError{fiber.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY"}
	errInvalidAuctionID      = apiError{fiber.StatusBadRequest, "INVALID_AUCTION_ID"}
	errInvalidStarsAmount    = apiError{fiber.StatusBadRequest, "INVALID_STARS_AMOUNT"}
	errAuctionNotFound       = apiError{fiber.StatusNotFound, "AUCTION_NOT_FOUND"}
	errAuctionNotActive      = apiError{fiber.StatusBadRequest, "AUCTION_NOT_ACTIVE"}
	errCannotBetOwnAuction   = apiError{fiber.StatusBadRequest, "CANNOT_BET_OWN_AUCTION"}
	errInsufficientBalance   = apiError{fiber.StatusBadRequest, "INSUFFICIENT_BALANCE"}
	errCannotDecrease        = apiError{fiber.StatusBadRequest, "CANNOT_DECREASE"}
	errTooManyRequests       = apiError{fiber.StatusTooManyRequests, "TOO_MANY_REQUESTS"}

	errInvalidName          = apiError{fiber.StatusBadRequest, "INVALID_NAME"}
	errInvalidGiftName      = apiError{fiber.StatusBadRequest, "INVALID_GIFT_NAME"}
	errInvalidGiftCount     = apiError{fiber.StatusBadRequest, "INVALID_GIFT_COUNT"}
	errInvalidStartTime     = apiError{fiber.StatusBadRequest, "INVALID_START_TIME"}
	errInvalidRounds        = apiError{fiber.StatusBadRequest, "INVALID_ROUNDS"}
	errInsufficientGifts    = apiError{fiber.StatusBadRequest, "INSUFFICIENT_GIFTS"}
	errIdempotencyConflict  = apiError{fiber.StatusConflict, "IDEMPOTENCY_CONFLICT"}

	errInternal = apiError{fiber.StatusInternalServerError, "INTERNAL_ERROR"}
)
