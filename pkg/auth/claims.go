package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/auricsoft/jewelstock-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Tenant string
	Role   enums.StaffRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to staff clients. The
// tenant claim scopes every request to one isolated store.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Tenant string          `json:"tenant"`
	Role   enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
