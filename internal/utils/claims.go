package utils

import (
	"errors"

	"riskgate/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ClaimsKey is the fiber Locals key holding the caller's *models.ServiceClaims.
const ClaimsKey = "claims"

// GetServiceClaims extracts the caller's claims from the Fiber context.
func GetServiceClaims(c *fiber.Ctx) (*models.ServiceClaims, error) {
	v := c.Locals(ClaimsKey)
	if v == nil {
		return nil, errors.New("claims not found in context")
	}

	claims, ok := v.(*models.ServiceClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
