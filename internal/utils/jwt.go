package utils

import (
	"errors"
	"time"

	"riskgate/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "riskgate"

// GenerateServiceToken signs an HS256 token for a service caller such as the
// backtest client.
func GenerateServiceToken(secret, subject string, permissions []string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("auth secret not configured")
	}

	now := time.Now()
	claims := models.ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   subject,
		},
		Permissions: permissions,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseServiceToken parses and validates a service token.
func ParseServiceToken(secret, tokenStr string) (*models.ServiceClaims, error) {
	if secret == "" {
		return nil, errors.New("auth secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.ServiceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
