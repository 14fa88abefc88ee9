package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access token payload minted by the identity service. Billing only
// reads it; TenantID scopes every enrollment, freeze and refund lookup.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id,omitempty"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Actor identifies the caller in audit columns such as processed_by.
func (c *JWTClaims) Actor() string {
	if c == nil {
		return ""
	}
	return c.UserID
}
