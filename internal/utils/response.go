package utils

import "github.com/gofiber/fiber/v2"

// MsgInternalError is the only body returned for 500 responses.
const MsgInternalError = "internal error processing transaction"

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// BadRequest sends a JSON error response with status 400.
func BadRequest(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": message})
}

// Unauthorized sends a JSON error response with status 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusUnauthorized, fiber.Map{"error": message})
}

// Forbidden sends a JSON error response with status 403.
func Forbidden(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusForbidden, fiber.Map{"error": message})
}

// NotFound sends a JSON error response with status 404.
func NotFound(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusNotFound, fiber.Map{"error": message})
}

// InternalError sends the generic 500 body. Details belong in the log.
func InternalError(c *fiber.Ctx) error {
	return Respond(c, fiber.StatusInternalServerError, fiber.Map{"error": MsgInternalError})
}

// ServiceUnavailable sends a JSON error response with status 503.
func ServiceUnavailable(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusServiceUnavailable, data)
}
