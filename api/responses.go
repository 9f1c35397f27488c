package api

import "github.com/gofiber/fiber/v2"

// sendJSON writes body as JSON with the given status code. Handlers use the typed response structs
// in each file rather than a generic success envelope, matching the flat
// {success, ...} / {error} shapes the external interface calls for.
func sendJSON(c *fiber.Ctx, statusCode int, body interface{}) error {
	return c.Status(statusCode).JSON(body)
}

func sendError(c *fiber.Ctx, err apiError) error {
	return c.Status(err.status).JSON(fiber.Map{"success": false, "error": err.code})
}
