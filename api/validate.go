package api

import (
	"regexp"

	"github.com/gofiber/fiber/v2"
)

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// callerID extracts the trusted caller-id header. The core treats it as
// opaque and pre-authenticated; authentication itself is an external
// concern this boundary never implements.
func callerID(c *fiber.Ctx) (string, bool) {
	id := c.Get("X-User-Id")
	return id, id != ""
}

func idempotencyKey(c *fiber.Ctx) (string, bool) {
	key := c.Get("X-Idempotency-Key")
	return key, idempotencyKeyPattern.MatchString(key)
}
