package middleware

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Claims is the access token payload read by JWTAuth
type Claims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs an access token for a caller of tenantID. A nil
// tenant leaves the claim out. Tokens come from the identity provider in
// production; this is for seeding and local testing.
func IssueAccessToken(secret string, userID uuid.UUID, role string, tenantID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID.String(),
		Role:   role,
		Type:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "tripstock",
			Subject:   userID.String(),
		},
	}
	if tenantID != uuid.Nil {
		claims.TenantID = tenantID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
