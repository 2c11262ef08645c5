package middleware

import (
	"riskgate/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RequestLogger attaches base, tagged with the request id set by the
// requestid middleware, to the request's user context.
func RequestLogger(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := base
		if id, ok := c.Locals("requestid").(string); ok && id != "" {
			l = base.With().Str("request_id", id).Logger()
		}
		c.SetUserContext(logger.WithContext(c.UserContext(), l))
		return c.Next()
	}
}
