package auth

import (
	"github.com/docroute/docroute-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal is the caller identity the lifecycle engine trusts: who is acting
// and with what role. It is resolved once per request from the access token
// and passed explicitly into every engine call.
type Principal struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.UserRoleAdmin
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients by the
// identity service and consumed here.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the engine-facing identity value.
func (c *AccessTokenClaims) Principal() Principal {
	return Principal{UserID: c.UserID, Role: c.Role}
}
