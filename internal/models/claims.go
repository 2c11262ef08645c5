package models

import "github.com/golang-jwt/jwt/v5"

// Service permissions
const (
	PermissionEvaluate        = "transactions:evaluate"
	PermissionTransactionRead = "transactions:read"
	PermissionChargebackWrite = "chargebacks:write"
)

// ServiceClaims identifies a caller of the evaluation API.
type ServiceClaims struct {
	jwt.RegisteredClaims
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission
func (c *ServiceClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// DefaultServicePermissions are granted to tokens minted by riskctl.
func DefaultServicePermissions() []string {
	return []string{
		PermissionEvaluate,
		PermissionTransactionRead,
		PermissionChargebackWrite,
	}
}
