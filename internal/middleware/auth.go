// Package middleware provides HTTP middleware for the evaluation API.
package middleware

import (
	"strings"

	"riskgate/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// AuthMiddleware validates bearer service tokens. With an empty secret every
// request passes and no claims are set.
type AuthMiddleware struct {
	secret string
	log    zerolog.Logger
}

func NewAuthMiddleware(secret string, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, log: log}
}

// Enabled reports whether tokens are checked.
func (m *AuthMiddleware) Enabled() bool {
	return m.secret != ""
}

// Handler validates the token and stores its claims under utils.ClaimsKey.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	if !m.Enabled() {
		return c.Next()
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return utils.Unauthorized(c, "invalid authorization format")
	}

	claims, err := utils.ParseServiceToken(m.secret, tokenString)
	if err != nil {
		m.log.Debug().Err(err).Str("path", c.Path()).Msg("token rejected")
		return utils.Unauthorized(c, "invalid token")
	}

	c.Locals(utils.ClaimsKey, claims)
	return c.Next()
}

// RequirePermission returns a middleware that checks for a specific
// permission. It is a no-op when auth is disabled.
func (m *AuthMiddleware) RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.Enabled() {
			return c.Next()
		}
		claims, err := utils.GetServiceClaims(c)
		if err != nil {
			return utils.Unauthorized(c, "unauthorized")
		}
		if !claims.HasPermission(permission) {
			m.log.Warn().
				Str("subject", claims.Subject).
				Str("permission", permission).
				Msg("permission denied")
			return utils.Forbidden(c, "insufficient permissions")
		}
		return c.Next()
	}
}

