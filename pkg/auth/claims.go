package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	Role        enums.Role
	Permissions []enums.Permission
	JTI         string
}

// AccessTokenClaims is the token shape issued by the auth service. A nil
// Permissions claim means the role table applies.
type AccessTokenClaims struct {
	UserID      uuid.UUID          `json:"user_id"`
	Role        enums.Role         `json:"role"`
	Permissions []enums.Permission `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}
